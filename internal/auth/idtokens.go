package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

type ExternalTokenClaims struct {
	Provider      Provider
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
}

// IDTokenVerifier checks a third-party ID token against the configured audience.
type IDTokenVerifier interface {
	Verify(ctx context.Context, token string) (*ExternalTokenClaims, error)
}

type GoogleVerifier struct {
	ClientID string
}

func (v GoogleVerifier) Verify(ctx context.Context, token string) (*ExternalTokenClaims, error) {
	return VerifyGoogleIDToken(ctx, token, v.ClientID)
}

type AppleVerifier struct {
	ServiceID string
}

func (v AppleVerifier) Verify(ctx context.Context, token string) (*ExternalTokenClaims, error) {
	return VerifyAppleIDToken(ctx, token, v.ServiceID)
}

func VerifyGoogleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing google client id")
	}

	payload, err := idtoken.Validate(ctx, tokenString, expectedAud)
	if err != nil {
		return nil, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)

	return &ExternalTokenClaims{
		Provider:      ProviderGoogle,
		Issuer:        payload.Issuer,
		Subject:       payload.Subject,
		Email:         NormalizeEmail(email),
		EmailVerified: verified,
	}, nil
}

func VerifyAppleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing apple service id")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := validator.NewClient()
	idToken, err := client.VerifyIdToken(expectedAud, tokenString)
	if err != nil {
		return nil, err
	}
	if idToken.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", idToken.Iss)
	}

	// Apple only returns addresses it has verified or relayed.
	return &ExternalTokenClaims{
		Provider:      ProviderApple,
		Issuer:        idToken.Iss,
		Subject:       idToken.Sub,
		Email:         NormalizeEmail(idToken.Email),
		EmailVerified: idToken.Email != "",
	}, nil
}
