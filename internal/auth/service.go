package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/scim-bridge/scim-bridge/internal/config"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 5 * time.Minute
)

// Service verifies bearer tokens.
type Service struct {
	token string
	hash  string
	cache *lru.LRU[string, struct{}]
}

// NewService creates a token verifier from the SCIM settings.
// The hash wins when both a token and a hash are configured.
func NewService(cfg config.SCIM) (*Service, error) {
	token := strings.TrimSpace(cfg.BearerToken)
	if token == "" && cfg.BearerTokenHash == "" {
		return nil, ErrNoSecret
	}

	size := cfg.AuthCacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	ttl := cfg.AuthCacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Service{
		token: token,
		hash:  cfg.BearerTokenHash,
		cache: lru.NewLRU[string, struct{}](size, nil, ttl),
	}, nil
}

// Verify checks a presented token.
func (s *Service) Verify(token string) error {
	if token == "" {
		return ErrMissingToken
	}

	if s.hash == "" {
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			return ErrInvalidToken
		}

		return nil
	}

	key := digest(token)
	if _, ok := s.cache.Get(key); ok {
		return nil
	}

	match, err := argon2id.ComparePasswordAndHash(token, s.hash)
	if err != nil {
		return fmt.Errorf("failed to verify token hash: %w", err)
	}

	if !match {
		return ErrInvalidToken
	}

	s.cache.Add(key, struct{}{})
	log.Debug().Int("cached", s.cache.Len()).Msg("bearer token verified against hash")

	return nil
}

// HashToken creates an argon2id hash suitable for scim.bearerTokenHash.
func HashToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}

	hash, err := argon2id.CreateHash(token, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	return hash, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
