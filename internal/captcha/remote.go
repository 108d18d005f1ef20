package captcha

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventportal/internal/domain"
)

const DefaultVerifyURL = "https://api.hcaptcha.com/siteverify"

// RemoteGate checks a widget response token with a third-party siteverify
// endpoint. It fails closed on any transport or decoding problem.
type RemoteGate struct {
	VerifyURL string
	SiteKey   string
	Secret    string
	Client    *http.Client
	Logger    *slog.Logger
}

var _ Gate = (*RemoteGate)(nil)

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (g *RemoteGate) Present(context.Context, *domain.Session) (Challenge, error) {
	return Challenge{Kind: KindRemote, SiteKey: g.SiteKey}, nil
}

func (g *RemoteGate) Validate(ctx context.Context, _ *domain.Session, response, remoteIP string) bool {
	response = strings.TrimSpace(response)
	if response == "" || g.Secret == "" {
		return false
	}

	form := url.Values{}
	form.Set("secret", g.Secret)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	verifyURL := g.VerifyURL
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		g.logger().Error("captcha verify request build failed", "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		g.logger().Warn("captcha verify request failed", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger().Warn("captcha verify non-200", "status", resp.StatusCode)
		return false
	}

	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		g.logger().Warn("captcha verify decode failed", "err", err)
		return false
	}
	if !out.Success {
		g.logger().Info("captcha rejected", "codes", out.ErrorCodes)
	}
	return out.Success
}

func (g *RemoteGate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
