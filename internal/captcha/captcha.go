// Package captcha holds the bot challenge strategies used in front of
// registration. Both strategies expose the same boolean contract.
package captcha

import (
	"context"

	"eventportal/internal/domain"
)

type Kind string

const (
	KindMath   Kind = "math"
	KindRemote Kind = "remote"
)

// Challenge is what a form needs to render the challenge.
type Challenge struct {
	Kind     Kind
	Question string
	SiteKey  string
}

type Gate interface {
	Present(ctx context.Context, sess *domain.Session) (Challenge, error)
	// Validate never returns an error: anything other than a confirmed pass is
	// a failure.
	Validate(ctx context.Context, sess *domain.Session, response, remoteIP string) bool
}
