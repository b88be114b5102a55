package store

import (
	"context"
	"time"

	"github.com/Aidin1998/accounts/common/dbutil"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateIn holds the fields for a new user enrolled in an organization.
type CreateIn struct {
	Email            string
	Username         string
	FirstName        string
	LastName         string
	Phone            string
	AllowNewsletters bool
	OrganizationID   uint
	Role             string
}

type Store interface {
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, in CreateIn) (*models.User, error)
	User(ctx context.Context, id uint) (*models.User, error)
	UserInOrganization(ctx context.Context, orgID, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	SetAvatar(ctx context.Context, id uint, key string) error
	SetHotkeys(ctx context.Context, id uint, raw string) error

	CreateOrganization(ctx context.Context, title string, owner uint) (*models.Organization, error)
	Membership(ctx context.Context, orgID, userID uint) (*models.OrganizationMember, error)

	Token(ctx context.Context, userID uint) (*models.Token, error)
	TokenByKey(ctx context.Context, key string) (*models.Token, error)
	ReplaceToken(ctx context.Context, userID uint, key string) (previous string, err error)
}

type StoreImp struct {
	log *zap.Logger
	db  *gorm.DB
}

var _ Store = (*StoreImp)(nil)

func New(log *zap.Logger, db *gorm.DB) *StoreImp {
	return &StoreImp{log, db}
}

func (s *StoreImp) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Token{},
	)
}

func (s *StoreImp) CreateUser(ctx context.Context, in CreateIn) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		Email:            in.Email,
		Username:         in.Username,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Phone:            in.Phone,
		AllowNewsletters: in.AllowNewsletters,
		DateJoined:       now,
		LastActivity:     now,
	}
	if in.OrganizationID != 0 {
		orgID := in.OrganizationID
		user.ActiveOrganizationID = &orgID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if err = dbutil.WrapError(err); errors.Is(err, errors.Conflict) {
				return errors.Conflict.Explain("user with this email already exists")
			}
			return errors.New("failed to create user").Wrap(err)
		}
		if in.OrganizationID == 0 {
			return nil
		}
		member := &models.OrganizationMember{
			OrganizationID: in.OrganizationID,
			UserID:         user.ID,
			Role:           in.Role,
		}
		if err := tx.Create(member).Error; err != nil {
			return errors.New("failed to add organization member").Wrap(dbutil.WrapError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *StoreImp) User(ctx context.Context, id uint) (*models.User, error) {
	if id == 0 {
		return nil, errors.Invalid.Explain("user ID is required")
	}

	var user models.User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound.Explain("user not found")
		}

		return nil, errors.New("failed to get user by ID").Wrap(result.Error)
	}

	return &user, nil
}

func (s *StoreImp) UserInOrganization(ctx context.Context, orgID, id uint) (*models.User, error) {
	user, err := dbutil.FindOne[models.User](s.db.WithContext(ctx).
		Where("id = ?", id).
		Where("id IN (?)", s.memberIDs(ctx, orgID)))
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFound.Explain("user not found")
		}
		return nil, errors.New("failed to get user").Wrap(err)
	}

	return user, nil
}

func (s *StoreImp) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, errors.Invalid.Explain("email is required")
	}

	user, err := dbutil.FindOne[models.User](s.db.WithContext(ctx).Where("email = ?", email))
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFound.Explain("user not found")
		}
		return nil, errors.New("failed to get user by email").Wrap(err)
	}

	return user, nil
}

func (s *StoreImp) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	query := s.db.WithContext(ctx).
		Where("id IN (?)", s.memberIDs(ctx, filter.OrganizationID)).
		Order("id")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	users := []models.User{}
	if err := query.Find(&users).Error; err != nil {
		return nil, errors.New("failed to list users").Wrap(err)
	}

	return users, nil
}

func (s *StoreImp) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = time.Now().UTC()

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return errors.New("failed to update user").Wrap(dbutil.WrapError(result.Error))
	}
	if result.RowsAffected == 0 {
		return errors.NotFound.Explain("user not found")
	}

	return nil
}

func (s *StoreImp) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return errors.Invalid.Explain("user ID is required")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return errors.New("failed to delete user token").Wrap(err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return errors.New("failed to delete user memberships").Wrap(err)
		}
		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return errors.New("failed to delete user").Wrap(result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.NotFound.Explain("user not found")
		}
		return nil
	})
}

func (s *StoreImp) SetAvatar(ctx context.Context, id uint, key string) error {
	return s.updateColumn(ctx, id, "avatar", key)
}

func (s *StoreImp) SetHotkeys(ctx context.Context, id uint, raw string) error {
	return s.updateColumn(ctx, id, "custom_hotkeys", raw)
}

// updateColumn writes a single column without touching the rest of the row.
func (s *StoreImp) updateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn(column, value)
	if result.Error != nil {
		return errors.New("failed to update " + column).Wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NotFound.Explain("user not found")
	}
	return nil
}

func (s *StoreImp) CreateOrganization(ctx context.Context, title string, owner uint) (*models.Organization, error) {
	org := &models.Organization{Title: title, CreatedByID: &owner}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return errors.New("failed to create organization").Wrap(err)
		}
		member := &models.OrganizationMember{OrganizationID: org.ID, UserID: owner, Role: models.RoleOwner}
		if err := tx.Create(member).Error; err != nil {
			return errors.New("failed to add organization owner").Wrap(dbutil.WrapError(err))
		}
		return tx.Model(&models.User{}).Where("id = ?", owner).
			UpdateColumn("active_organization_id", org.ID).Error
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

func (s *StoreImp) Membership(ctx context.Context, orgID, userID uint) (*models.OrganizationMember, error) {
	member, err := dbutil.FindOne[models.OrganizationMember](s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID))
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFound.Explain("membership not found")
		}
		return nil, errors.New("failed to get membership").Wrap(err)
	}
	return member, nil
}

func (s *StoreImp) Token(ctx context.Context, userID uint) (*models.Token, error) {
	token, err := dbutil.FindOne[models.Token](s.db.WithContext(ctx).Where("user_id = ?", userID))
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFound.Explain("token not found")
		}
		return nil, errors.New("failed to get token").Wrap(err)
	}
	return token, nil
}

func (s *StoreImp) TokenByKey(ctx context.Context, key string) (*models.Token, error) {
	if key == "" {
		return nil, errors.NotFound.Explain("token not found")
	}
	token, err := dbutil.FindOne[models.Token](s.db.WithContext(ctx).Where(&models.Token{Key: key}))
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, errors.NotFound.Explain("token not found")
		}
		return nil, errors.New("failed to get token").Wrap(err)
	}
	return token, nil
}

func (s *StoreImp) ReplaceToken(ctx context.Context, userID uint, key string) (string, error) {
	var previous string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.Token
		result := tx.Where("user_id = ?", userID).Limit(1).Find(&old)
		if result.Error != nil {
			return errors.New("failed to read token").Wrap(result.Error)
		}
		if result.RowsAffected > 0 {
			previous = old.Key
			if err := tx.Delete(&models.Token{}, "user_id = ?", userID).Error; err != nil {
				return errors.New("failed to delete token").Wrap(err)
			}
		}
		if err := tx.Create(&models.Token{Key: key, UserID: userID}).Error; err != nil {
			return errors.New("failed to create token").Wrap(dbutil.WrapError(err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return previous, nil
}

func (s *StoreImp) memberIDs(ctx context.Context, orgID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.OrganizationMember{}).
		Select("user_id").
		Where("organization_id = ?", orgID)
}
