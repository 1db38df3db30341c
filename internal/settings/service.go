package settings

import (
	"context"
	"sync"
)

// Settings holds provider credentials that can be changed at runtime.
// An empty key means "use the key from the environment".
type Settings struct {
	ID           int    `json:"-"`
	GeminiAPIKey string `json:"gemini_api_key"`
	OpenAIAPIKey string `json:"openai_api_key"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo     Repository
	defaults Settings
}

// NewService falls back to defaults for any key the repository leaves empty.
func NewService(repo Repository, defaults Settings) *Service {
	return &Service{repo: repo, defaults: defaults}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	return s.repo.Update(ctx, set)
}

// Effective returns the stored settings with environment fallbacks applied.
func (s *Service) Effective(ctx context.Context) (*Settings, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	eff := *stored
	if eff.GeminiAPIKey == "" {
		eff.GeminiAPIKey = s.defaults.GeminiAPIKey
	}
	if eff.OpenAIAPIKey == "" {
		eff.OpenAIAPIKey = s.defaults.OpenAIAPIKey
	}
	return &eff, nil
}

func (s *Service) GeminiAPIKey(ctx context.Context) (string, error) {
	eff, err := s.Effective(ctx)
	if err != nil {
		return "", err
	}
	return eff.GeminiAPIKey, nil
}

func (s *Service) OpenAIAPIKey(ctx context.Context) (string, error) {
	eff, err := s.Effective(ctx)
	if err != nil {
		return "", err
	}
	return eff.OpenAIAPIKey, nil
}

// MemoryRepo keeps settings in process when no database is configured.
type MemoryRepo struct {
	mu sync.RWMutex
	s  Settings
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{s: Settings{ID: 1}}
}

func (r *MemoryRepo) Get(_ context.Context) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.s
	return &s, nil
}

func (r *MemoryRepo) Update(_ context.Context, s *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = *s
	r.s.ID = 1
	return nil
}
