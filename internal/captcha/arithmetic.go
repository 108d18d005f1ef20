package captcha

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"eventportal/internal/domain"
)

type AnswerStore interface {
	SetCaptchaAnswer(ctx context.Context, sessionID string, answer int) error
	// TakeCaptchaAnswer returns and clears the stored answer in one step.
	TakeCaptchaAnswer(ctx context.Context, sessionID string) (answer int, ok bool, err error)
}

type ArithmeticGate struct {
	Store  AnswerStore
	Logger *slog.Logger

	// IntN defaults to math/rand/v2.IntN.
	IntN func(n int) int
}

var _ Gate = (*ArithmeticGate)(nil)

func (g *ArithmeticGate) Present(ctx context.Context, sess *domain.Session) (Challenge, error) {
	if sess == nil || sess.ID == "" {
		return Challenge{}, fmt.Errorf("captcha: session required")
	}
	question, answer := g.generate()
	if err := g.Store.SetCaptchaAnswer(ctx, sess.ID, answer); err != nil {
		return Challenge{}, domain.NewStorageError("captcha.set_answer", err)
	}
	return Challenge{Kind: KindMath, Question: question}, nil
}

// Validate consumes the stored answer whether or not response is correct, so
// a challenge can be answered once.
func (g *ArithmeticGate) Validate(ctx context.Context, sess *domain.Session, response, _ string) bool {
	if sess == nil || sess.ID == "" {
		return false
	}
	expected, ok, err := g.Store.TakeCaptchaAnswer(ctx, sess.ID)
	if err != nil {
		g.logger().Error("captcha answer lookup failed", "err", err)
		return false
	}
	if !ok {
		return false
	}
	got, err := strconv.Atoi(strings.TrimSpace(response))
	if err != nil {
		return false
	}
	return got == expected
}

func (g *ArithmeticGate) generate() (string, int) {
	intN := g.IntN
	if intN == nil {
		intN = rand.IntN
	}
	a := intN(9) + 1
	b := intN(9) + 1
	switch intN(3) {
	case 0:
		return fmt.Sprintf("%d + %d", a, b), a + b
	case 1:
		if b > a {
			a, b = b, a
		}
		return fmt.Sprintf("%d - %d", a, b), a - b
	default:
		return fmt.Sprintf("%d × %d", a, b), a * b
	}
}

func (g *ArithmeticGate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
