package identities

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/metrics"
	"github.com/Aidin1998/accounts/pkg/models"
	"go.uber.org/zap"
)

// TokenCache remembers which user a token key belongs to. A revoked key is
// kept as an entry with a zero user id so a lookup racing a reset cannot
// cache it again: Set only writes keys that have no entry.
type TokenCache interface {
	Get(ctx context.Context, key string) (userID uint, ok bool, err error)
	Set(ctx context.Context, key string, userID uint) error
	Revoke(ctx context.Context, key string) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (uint, bool, error) { return 0, false, nil }
func (nopCache) Set(context.Context, string, uint) error         { return nil }
func (nopCache) Revoke(context.Context, string) error            { return nil }

// GenerateKey returns a fresh 40 character hex token key.
func GenerateKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", errors.New("failed to generate token").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// ResetToken replaces the user's token. The previous key stops
// authenticating as soon as this returns.
func (s *Service) ResetToken(ctx context.Context, actor *models.User) (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}

	previous, err := s.store.ReplaceToken(ctx, actor.ID, key)
	if err != nil {
		return "", err
	}
	if previous != "" {
		if err := s.cache.Revoke(ctx, previous); err != nil {
			s.log.Error("failed to revoke previous token", zap.Uint("user_id", actor.ID), zap.Error(err))
			return "", errors.Unavailable.Explain("Token was reset but the previous token could not be revoked, try again.").Wrap(err)
		}
	}

	metrics.TokensIssued.Inc()
	s.log.Debug("token reset", zap.Uint("user_id", actor.ID))
	return key, nil
}

func (s *Service) GetToken(ctx context.Context, actor *models.User) (string, error) {
	token, err := s.store.Token(ctx, actor.ID)
	if err != nil {
		return "", err
	}
	return token.Key, nil
}

// Authenticate resolves a token key to its user.
func (s *Service) Authenticate(ctx context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, errors.Unauthorized.Explain("Authentication credentials were not provided.")
	}

	userID, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("token cache lookup failed", zap.Error(err))
		ok = false
	}
	if ok && userID == 0 {
		return nil, errors.Unauthorized.Explain("Invalid token.")
	}
	if !ok {
		token, err := s.store.TokenByKey(ctx, key)
		if err != nil {
			if errors.Is(err, errors.NotFound) {
				return nil, errors.Unauthorized.Explain("Invalid token.")
			}
			return nil, err
		}
		userID = token.UserID
		if err := s.cache.Set(ctx, key, userID); err != nil {
			s.log.Warn("token cache store failed", zap.Error(err))
		}
	}

	user, err := s.store.User(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			s.evict(ctx, key)
			return nil, errors.Unauthorized.Explain("Invalid token.")
		}
		return nil, err
	}
	return user, nil
}

// evict revokes key in the cache. A failure is only logged: it is used for
// keys whose user is gone, which Authenticate rejects even on a cache hit.
func (s *Service) evict(ctx context.Context, key string) {
	if err := s.cache.Revoke(ctx, key); err != nil {
		s.log.Warn("token cache revocation failed", zap.Error(err))
	}
}
