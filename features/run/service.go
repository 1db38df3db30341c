package run

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Service records finished runs to the log, the repository and the event
// stream. The repository and publisher are optional.
type Service struct {
	repo   Repository
	log    *Log
	pub    EventPublisher
	logger *slog.Logger
}

func NewService(repo Repository, log *Log, pub EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, log: log, pub: pub, logger: logger}
}

// Record never fails the caller; sink errors are logged.
func (s *Service) Record(ctx context.Context, r *Run) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	ctx = context.WithoutCancel(ctx)

	if s.repo != nil {
		if err := s.repo.Save(ctx, r); err != nil {
			s.logger.ErrorContext(ctx, "failed to save run", "run_id", r.ID, "error", err)
		}
	}

	if s.log != nil {
		s.log.Write(*r)
	}

	if s.pub != nil {
		topic, body, err := encodeEvent(*r)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to encode run event", "run_id", r.ID, "error", err)
			return
		}
		if err := s.pub.Publish(topic, body); err != nil {
			s.logger.WarnContext(ctx, "failed to publish run event", "run_id", r.ID, "topic", topic, "error", err)
		}
	}
}

func (s *Service) List(ctx context.Context, limit int) ([]Run, error) {
	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}
