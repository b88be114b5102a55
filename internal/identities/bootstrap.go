package identities

import (
	"context"
	"strings"

	"github.com/Aidin1998/accounts/internal/identities/store"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"go.uber.org/zap"
)

// Bootstrap makes sure an owner account with an organization exists for
// email. It returns the owner and, when the account was just created, its
// first token. An existing account is left untouched.
func (s *Service) Bootstrap(ctx context.Context, email, organization string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validator.Var("email", email, "required,email"); err != nil {
		return nil, "", err
	}

	existing, err := s.store.UserByEmail(ctx, email)
	if err == nil {
		return existing, "", nil
	}
	if !errors.Is(err, errors.NotFound) {
		return nil, "", err
	}

	owner, err := s.store.CreateUser(ctx, store.CreateIn{Email: email, Username: email})
	if err != nil {
		return nil, "", err
	}
	if organization == "" {
		organization = "Default organization"
	}
	org, err := s.store.CreateOrganization(ctx, organization, owner.ID)
	if err != nil {
		return nil, "", err
	}
	owner.ActiveOrganizationID = &org.ID

	token, err := s.ResetToken(ctx, owner)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("bootstrapped owner account",
		zap.Uint("user_id", owner.ID),
		zap.Uint("organization_id", org.ID),
		zap.String("email", email))
	return owner, token, nil
}
