package sessions

import (
	"context"
	"fmt"
	"strings"
	"time"

	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
	"github.com/strrl/split-specs-dashboard/internal/format"
)

// ApiKeyRow is an API key ready for display
type ApiKeyRow struct {
	ID          string
	Name        string
	ExpireAt    int64
	ExpireLabel string
	Expired     bool
}

// FetchApiKeys lists the user's keys.
func (s *Service) FetchApiKeys(ctx context.Context) ([]ApiKeyRow, error) {
	keys, err := s.client.ApiKeys(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	rows := make([]ApiKeyRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, ApiKeyRow{
			ID:          k.ID,
			Name:        k.Name,
			ExpireAt:    k.ExpireAt,
			ExpireLabel: format.Timestamp(k.ExpireAt),
			Expired:     k.ExpireAt > 0 && k.ExpireAt <= now,
		})
	}
	return rows, nil
}

// DefaultKeyExpiry is the expiry used when a key is created without one.
func (s *Service) DefaultKeyExpiry() time.Time {
	return s.now().AddDate(0, DefaultKeyLifetime, 0)
}

// CreateApiKey creates a key and returns its secret. A zero expireAt means
// DefaultKeyExpiry.
func (s *Service) CreateApiKey(ctx context.Context, name string, expireAt time.Time) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("key name is required: %w", serrors.ErrInvalidInput)
	}
	if expireAt.IsZero() {
		expireAt = s.DefaultKeyExpiry()
	}
	if !expireAt.After(s.now()) {
		return "", fmt.Errorf("expiry %s is in the past: %w", format.Timestamp(expireAt.Unix()), serrors.ErrInvalidInput)
	}
	key, err := s.client.AddApiKey(ctx, name, expireAt.Unix())
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("name", name).Time("expire_at", expireAt).Msg("api key created")
	return key, nil
}

// DeleteApiKey revokes a key.
func (s *Service) DeleteApiKey(ctx context.Context, id string) error {
	if err := s.client.DeleteApiKey(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("key_id", id).Msg("api key deleted")
	return nil
}
