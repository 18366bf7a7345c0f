package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const jwksTTL = 1 * time.Hour

type jwksEntry struct {
	set     jwk.Set
	fetched time.Time
}

// JWKSManager fetches and caches JWKS documents per URL. Fetches for the
// same URL are serialized; a fresh cached set is served without touching
// the network.
type JWKSManager struct {
	mu      sync.Mutex
	entries map[string]jwksEntry
	ttl     time.Duration
	client  *http.Client
}

// NewJWKSManager creates a new JWKS manager
func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		entries: make(map[string]jwksEntry),
		ttl:     jwksTTL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetJWKS returns the key set for jwksURL, refreshing it when the cached
// copy is older than the TTL.
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[jwksURL]; ok && time.Since(e.fetched) < m.ttl {
		return e.set, nil
	}

	set, err := m.fetch(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.entries[jwksURL] = jwksEntry{set: set, fetched: time.Now()}
	return set, nil
}

func (m *JWKSManager) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return set, nil
}
