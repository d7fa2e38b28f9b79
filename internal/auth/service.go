package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erpgate/erpgate/internal/platform/httpx"
	"github.com/erpgate/erpgate/internal/shared"
)

// Service wraps API-key authentication rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate resolves an Authorization header of the form
// "token <key_id>:<secret>" to a caller identity. Every failure mode maps
// to Unauthenticated; the caller learns nothing about which part failed.
func (s *Service) Authenticate(ctx context.Context, header string) (*shared.Caller, error) {
	keyID, secret, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	key, err := s.repo.FindByKeyID(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown api key", httpx.ErrUnauthenticated)
	}
	if key.Disabled {
		return nil, fmt.Errorf("%w: api key disabled", httpx.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		return nil, fmt.Errorf("%w: invalid api key", httpx.ErrUnauthenticated)
	}

	return &shared.Caller{
		KeyID:    key.KeyID,
		Label:    key.Label,
		CanWrite: key.CanWrite,
	}, nil
}

func parseHeader(header string) (keyID, secret string, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "", fmt.Errorf("%w: no credentials supplied", httpx.ErrUnauthenticated)
	}
	scheme, credentials, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "token") {
		return "", "", fmt.Errorf("%w: unsupported authorization scheme", httpx.ErrUnauthenticated)
	}
	keyID, secret, found = strings.Cut(strings.TrimSpace(credentials), ":")
	if !found || keyID == "" || secret == "" {
		return "", "", fmt.Errorf("%w: malformed credentials", httpx.ErrUnauthenticated)
	}
	return keyID, secret, nil
}
