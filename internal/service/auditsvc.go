package service

import (
	"context"
	"log/slog"

	"eventportal/internal/domain"
)

type AuditStore interface {
	Append(ctx context.Context, e domain.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

type AuditService struct {
	Store  AuditStore
	Logger *slog.Logger
}

// Record appends an entry outside any transaction. A failure is logged and
// never reaches the caller.
func (s *AuditService) Record(ctx context.Context, e domain.AuditEntry) {
	if s == nil || s.Store == nil {
		return
	}
	if err := s.Store.Append(ctx, e); err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit append failed", "err", err, "action", e.Action)
	}
}

func (s *AuditService) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.Store.Recent(ctx, limit)
}
