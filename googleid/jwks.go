package googleid

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// DefaultJWKSURL publishes Google's current ID token signing keys.
const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var (
	// ErrJWKSFetchFailed is returned when the key set cannot be downloaded or decoded
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")

	// ErrKeyNotFound is returned when no key matches the token's kid
	ErrKeyNotFound = errors.New("signing key not found")
)

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSConfig holds settings for JWKSKeySource
type JWKSConfig struct {
	URL         string
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
	// MinRefreshInterval limits refetches triggered by unknown key ids.
	MinRefreshInterval time.Duration
}

// JWKSKeySource downloads and caches RSA keys from a JWKS endpoint.
// A lookup refetches the set when the cache has expired, or when the kid is
// unknown and the last fetch is older than MinRefreshInterval.
type JWKSKeySource struct {
	url        string
	httpClient *http.Client
	cacheTTL   time.Duration
	minRefresh time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	fetchedAt time.Time
}

// NewJWKSKeySource creates a key source for the given endpoint
func NewJWKSKeySource(cfg JWKSConfig) *JWKSKeySource {
	if cfg.URL == "" {
		cfg.URL = DefaultJWKSURL
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.MinRefreshInterval == 0 {
		cfg.MinRefreshInterval = time.Minute
	}
	return &JWKSKeySource{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		cacheTTL:   cfg.CacheTTL,
		minRefresh: cfg.MinRefreshInterval,
		now:        time.Now,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// PublicKey returns the key for kid, refreshing the set when needed
func (s *JWKSKeySource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := s.now().Before(s.expiresAt)
	s.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another goroutine may have refreshed while we waited
	now := s.now()
	if key, ok := s.keys[kid]; ok && now.Before(s.expiresAt) {
		return key, nil
	}
	if now.Before(s.expiresAt) && now.Sub(s.fetchedAt) < s.minRefresh {
		return nil, fmt.Errorf("%w: kid %s", ErrKeyNotFound, kid)
	}

	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}

	key, ok = s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: kid %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// Refresh forces a download of the key set
func (s *JWKSKeySource) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *JWKSKeySource) refreshLocked(ctx context.Context) error {
	jwks, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for i := range jwks.Keys {
		jwk := &jwks.Keys[i]
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		pub, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable RSA keys", ErrJWKSFetchFailed)
	}

	now := s.now()
	s.keys = keys
	s.fetchedAt = now
	s.expiresAt = now.Add(s.cacheTTL)
	return nil
}

func (s *JWKSKeySource) fetch(ctx context.Context) (*JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrJWKSFetchFailed, err)
	}
	return &jwks, nil
}

// CachedKeys returns the number of keys currently held
func (s *JWKSKeySource) CachedKeys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func jwkToRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("unsupported exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
