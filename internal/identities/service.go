// Package identities implements the user account operations scoped to the
// caller's active organization.
package identities

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Aidin1998/accounts/common/apiutil"
	"github.com/Aidin1998/accounts/internal/identities/store"
	"github.com/Aidin1998/accounts/internal/storage"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"go.uber.org/zap"
)

// MaxPageSize caps the page_size of a user listing.
const MaxPageSize = 1000

// ReadOnlyFields cannot be changed through a partial update.
var ReadOnlyFields = []string{"avatar", "date_joined", "email", "id", "initials", "last_activity"}

// writableFields maps an accepted update field to its validation rule.
var writableFields = map[string]string{
	"first_name":        "max=256",
	"last_name":         "max=256",
	"username":          "required,max=256",
	"phone":             "max=256",
	"allow_newsletters": "",
}

type Service struct {
	log       *zap.Logger
	store     store.Store
	validator *apiutil.Validator
	hotkeys   *HotkeysValidator
	avatars   storage.Storage
	cache     TokenCache
}

// NewService creates the account service. A nil cache disables token caching.
func NewService(log *zap.Logger, s store.Store, avatars storage.Storage, cache TokenCache) (*Service, error) {
	hotkeys, err := NewHotkeysValidator()
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = nopCache{}
	}

	return &Service{
		log:       log,
		store:     s,
		validator: apiutil.NewValidator(),
		hotkeys:   hotkeys,
		avatars:   avatars,
		cache:     cache,
	}, nil
}

// AvatarURL returns the public URL of the user's avatar, or "".
func (s *Service) AvatarURL(user *models.User) string {
	if user.Avatar == "" || s.avatars == nil {
		return ""
	}
	return s.avatars.URL(user.Avatar)
}

func activeOrganization(actor *models.User) (uint, error) {
	if actor == nil || actor.ActiveOrganizationID == nil {
		return 0, errors.Forbidden.Explain("You have no active organization.")
	}
	return *actor.ActiveOrganizationID, nil
}

// ListUsers returns the members of the actor's active organization ordered by
// id. A zero pageSize returns every member.
func (s *Service) ListUsers(ctx context.Context, actor *models.User, page, pageSize int) ([]models.User, error) {
	orgID, err := activeOrganization(actor)
	if err != nil {
		return nil, err
	}

	filter := models.UserFilter{OrganizationID: orgID}
	if pageSize > 0 {
		if pageSize > MaxPageSize {
			pageSize = MaxPageSize
		}
		if page < 1 {
			page = 1
		}
		if page > math.MaxInt/pageSize {
			return nil, errors.Invalid.Explain("invalid page").WithField("max", "page", "Page number is too large.")
		}
		filter.Limit = pageSize
		filter.Offset = (page - 1) * pageSize
	}

	return s.store.List(ctx, filter)
}

// CreateUser creates a user and enrolls it in the actor's active organization.
func (s *Service) CreateUser(ctx context.Context, actor *models.User, req models.CreateUserRequest) (*models.User, error) {
	orgID, err := activeOrganization(actor)
	if err != nil {
		return nil, err
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	in := store.CreateIn{
		Email:          req.Email,
		Username:       req.Username,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		OrganizationID: orgID,
		Role:           models.RoleAnnotator,
	}
	if in.Username == "" {
		in.Username = req.Email
	}
	if req.AllowNewsletters != nil {
		in.AllowNewsletters = *req.AllowNewsletters
	}

	user, err := s.store.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}

	s.log.Info("user created",
		zap.Uint("user_id", user.ID),
		zap.Uint("organization_id", orgID),
		zap.Uint("created_by", actor.ID))
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	orgID, err := activeOrganization(actor)
	if err != nil {
		return nil, err
	}
	return s.store.UserInOrganization(ctx, orgID, id)
}

// UpdateUser applies a partial update. Read-only fields are rejected before
// anything is written. When allow_newsletters is part of the request the
// returned update is built from the updated user's record re-read after the
// write. That user is not necessarily the caller: an administrator changing
// someone else's opt-in reports the target's email and flag, never their own.
func (s *Service) UpdateUser(ctx context.Context, actor *models.User, id uint, fields map[string]any) (*models.User, *models.NewsletterUpdate, error) {
	orgID, err := activeOrganization(actor)
	if err != nil {
		return nil, nil, err
	}

	for _, field := range ReadOnlyFields {
		if _, ok := fields[field]; ok {
			return nil, nil, errors.MethodNotAllowed.Explain("Cannot update read-only field: %s", field)
		}
	}

	if _, err := s.store.UserInOrganization(ctx, orgID, id); err != nil {
		return nil, nil, err
	}

	updates, err := s.userUpdates(fields)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Update(ctx, id, updates); err != nil {
		return nil, nil, err
	}

	user, err := s.store.User(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var newsletter *models.NewsletterUpdate
	if _, ok := fields["allow_newsletters"]; ok {
		newsletter = &models.NewsletterUpdate{
			UserID:              user.ID,
			Email:               user.Email,
			AllowNewsletters:    user.AllowNewsletters,
			UpdateNotifications: 1,
			NewUser:             0,
		}
	}

	return user, newsletter, nil
}

// userUpdates type-checks and validates the writable fields present in fields.
// Unknown fields are ignored.
func (s *Service) userUpdates(fields map[string]any) (map[string]interface{}, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := writableFields[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	updates := make(map[string]interface{}, len(names))
	var invalid []errors.FieldError
	for _, name := range names {
		value := fields[name]
		if name == "allow_newsletters" {
			b, ok := value.(bool)
			if !ok {
				invalid = append(invalid, errors.NewFieldError("invalid", name, "Must be a valid boolean."))
				continue
			}
			updates[name] = b
			continue
		}

		str, ok := value.(string)
		if !ok {
			invalid = append(invalid, errors.NewFieldError("invalid", name, fmt.Sprintf("Not a valid string: %v", value)))
			continue
		}
		if err := s.validator.Var(name, str, writableFields[name]); err != nil {
			var e *errors.Error
			if errors.As(err, &e) {
				invalid = append(invalid, e.Fields...)
			}
			continue
		}
		updates[name] = str
	}

	if len(invalid) > 0 {
		return nil, errors.Invalid.Explain("validation error").WithFields(invalid)
	}
	return updates, nil
}

// DeleteUser removes a member of the active organization with its token,
// memberships and avatar file.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, id uint) error {
	orgID, err := activeOrganization(actor)
	if err != nil {
		return err
	}

	user, err := s.store.UserInOrganization(ctx, orgID, id)
	if err != nil {
		return err
	}

	token, err := s.store.Token(ctx, id)
	if err != nil && !errors.Is(err, errors.NotFound) {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if token != nil {
		s.evict(ctx, token.Key)
	}
	if user.Avatar != "" && s.avatars != nil {
		if err := s.avatars.Delete(ctx, user.Avatar); err != nil {
			s.log.Warn("failed to delete avatar file", zap.Uint("user_id", id), zap.Error(err))
		}
	}

	s.log.Info("user deleted", zap.Uint("user_id", id), zap.Uint("deleted_by", actor.ID))
	return nil
}

// WhoAmI returns the caller's own record.
func (s *Service) WhoAmI(ctx context.Context, actor *models.User) (*models.User, error) {
	if actor == nil {
		return nil, errors.Unauthorized.Explain("Authentication credentials were not provided.")
	}
	return s.store.User(ctx, actor.ID)
}
