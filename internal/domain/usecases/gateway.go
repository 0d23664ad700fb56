package usecases

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/0xcro3dile/licenserag-go/internal/domain/ports"
)

// Tags prefixing every gateway failure string. The caller renders these
// directly to the end user; no error ever escapes the gateway.
const (
	tagConnectionError = "[LLM Connection Error]"
	tagTimeoutError    = "[LLM Timeout Error]"
	tagHTTPError       = "[LLM HTTP Error]"
	tagGenericError    = "[LLM Error]"
	tagEmptyResponse   = "[Empty response from LLM]"
)

// GatewayConfig tunes the generation gateway.
type GatewayConfig struct {
	Attempts    int           // retry budget for transient failures
	Backoff     time.Duration // base delay, grows linearly per attempt
	CallTimeout time.Duration // per-call deadline on the backend request
	CacheSize   int           // bounded response cache capacity
}

// Gateway serializes, caches, and retries calls to the generation backend.
// The backend misbehaves under concurrent requests, so at most one call is
// in flight process-wide; the gateway is constructed once per process and
// holds that lock plus the response cache.
type Gateway struct {
	backend ports.GenerationService
	cfg     GatewayConfig

	callMu sync.Mutex // serializes all backend calls
	cache  *responseCache
}

// NewGateway creates a gateway around the raw generation backend.
func NewGateway(backend ports.GenerationService, cfg GatewayConfig) *Gateway {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 180 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	return &Gateway{
		backend: backend,
		cfg:     cfg,
		cache:   newResponseCache(cfg.CacheSize),
	}
}

// Generate produces a completion for the prompt. Every failure mode comes
// back as a distinguishable tagged string the caller can show to the user.
func (g *Gateway) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) string {
	key := cacheKey(prompt)
	if text, ok := g.cache.get(key); ok {
		log.Printf("[INFO] Generation cache hit")
		return text
	}

	opts := ports.GenerateOptions{MaxTokens: maxTokens, Temperature: temperature}

	for attempt := 1; attempt <= g.cfg.Attempts; attempt++ {
		text, err := g.callBackend(ctx, prompt, opts)
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				// Well-formed but empty: a valid, if unhelpful, result.
				log.Printf("[WARN] Generation backend returned an empty response")
				return tagEmptyResponse
			}
			g.cache.put(key, text)
			return text
		}

		var statusErr *ports.BackendStatusError
		if errors.As(err, &statusErr) {
			// Explicit backend error status is not transient: no retry.
			log.Printf("[ERROR] Generation backend error: %v", statusErr)
			return fmt.Sprintf("%s %v", tagHTTPError, statusErr)
		}

		log.Printf("[WARN] Generation attempt %d/%d failed: %v", attempt, g.cfg.Attempts, err)
		if attempt < g.cfg.Attempts {
			if !g.sleep(ctx, time.Duration(attempt)*g.cfg.Backoff) {
				return g.exhausted(ctx.Err())
			}
			continue
		}
		return g.exhausted(err)
	}

	return fmt.Sprintf("%s max retries exceeded", tagGenericError)
}

// callBackend issues one serialized backend call under the global lock.
func (g *Gateway) callBackend(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	g.callMu.Lock()
	defer g.callMu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()
	return g.backend.Generate(callCtx, prompt, opts)
}

// exhausted renders the terminal failure string for a transient error whose
// retry budget ran out.
func (g *Gateway) exhausted(err error) string {
	switch {
	case ports.IsTimeout(err):
		return fmt.Sprintf("%s Request to the generation backend timed out after %d attempts.", tagTimeoutError, g.cfg.Attempts)
	case errors.Is(err, ports.ErrMalformedResponse):
		return fmt.Sprintf("%s Invalid response from the generation backend.", tagGenericError)
	default:
		return fmt.Sprintf("%s Connection to the generation backend failed after %d attempts. Make sure it is running.", tagConnectionError, g.cfg.Attempts)
	}
}

// sleep waits for the backoff delay, returning false if ctx ended first.
func (g *Gateway) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// cacheKey fingerprints a prompt. MD5 is fine here: the key only needs to be
// cheap and stable, not collision-resistant against an adversary.
func cacheKey(prompt string) string {
	sum := md5.Sum([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// responseCache is a capacity-bounded prompt->text cache with strict
// first-in-first-out eviction: a hit does not renew an entry's position.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]string
	order   []string
	cap     int
}

func newResponseCache(capacity int) *responseCache {
	return &responseCache{
		entries: make(map[string]string, capacity),
		cap:     capacity,
	}
}

func (c *responseCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.entries[key]
	return text, ok
}

func (c *responseCache) put(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = text
		return
	}
	if len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = text
	c.order = append(c.order, key)
}
