package auth

import (
	"context"
	"errors"
	"net"
	"strings"
)

// MXChecker reports whether an email's domain advertises a mail exchanger.
// Some valid addresses (A-record only domains) are rejected; that tradeoff is
// accepted for registration.
type MXChecker struct {
	Resolver *net.Resolver
}

func (c MXChecker) HasMailExchanger(ctx context.Context, email string) (bool, error) {
	_, domainPart, ok := strings.Cut(email, "@")
	domainPart = strings.TrimSuffix(strings.TrimSpace(domainPart), ".")
	if !ok || domainPart == "" {
		return false, nil
	}

	resolver := c.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	records, err := resolver.LookupMX(ctx, domainPart)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}
	for _, mx := range records {
		// A null MX (RFC 7505) is a single "." host.
		if mx.Host != "" && mx.Host != "." {
			return true, nil
		}
	}
	return false, nil
}
