package gemini

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrMissingKey = errors.New("gemini api key not configured")

// KeySource resolves the API key on every call so keys can rotate at runtime.
type KeySource interface {
	GeminiAPIKey(ctx context.Context) (string, error)
}

// StaticKey is a fixed key.
type StaticKey string

func (k StaticKey) GeminiAPIKey(context.Context) (string, error) { return string(k), nil }

// cachedClient is one generative-ai-go client and the calls still using it.
type cachedClient struct {
	client  *genai.Client
	key     string
	refs    int
	retired bool
	closed  bool
}

// clientCache holds one client for the current key. A client replaced by a
// key rotation stays open until the last call using it releases it.
type clientCache struct {
	mu          sync.Mutex
	current     *cachedClient
	clientOpts  []option.ClientOption
	closeClient func(*genai.Client) error
}

// acquire returns the client for key and a release func that must be called
// once the caller is done with it.
func (c *clientCache) acquire(ctx context.Context, key string) (*genai.Client, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.key != key {
		opts := append(append([]option.ClientOption{}, c.clientOpts...), option.WithAPIKey(key))
		client, err := genai.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, err
		}
		if old := c.current; old != nil {
			old.retired = true
			c.closeIfIdle(old)
		}
		c.current = &cachedClient{client: client, key: key}
	}

	entry := c.current
	entry.refs++
	var once sync.Once
	release := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.refs--
			c.closeIfIdle(entry)
		})
	}
	return entry.client, release, nil
}

// closeIfIdle closes a retired client with no callers left. c.mu must be held.
func (c *clientCache) closeIfIdle(e *cachedClient) {
	if !e.retired || e.refs > 0 || e.closed {
		return
	}
	e.closed = true
	closeFn := c.closeClient
	if closeFn == nil {
		closeFn = (*genai.Client).Close
	}
	if err := closeFn(e.client); err != nil {
		slog.Warn("failed to close genai client", "error", err)
	}
}

// Close retires the current client. It is closed now if idle, otherwise when
// its last caller releases it.
func (c *clientCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	c.current.retired = true
	c.closeIfIdle(c.current)
	c.current = nil
	return nil
}

func resolveKey(ctx context.Context, keys KeySource) (string, error) {
	key, err := keys.GeminiAPIKey(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrMissingKey
	}
	return key, nil
}
