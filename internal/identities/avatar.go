package identities

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxAvatarSize      = 1 << 20
	MaxAvatarDimension = 1200
)

var avatarTypes = []string{"image/jpeg", "image/png", "image/gif"}

// Upload is a received file.
type Upload struct {
	Filename string
	Data     []byte
}

// checkAvatar accepts exactly one image within the size, type and dimension
// limits and returns the file extension to store it under.
func checkAvatar(uploads []Upload) (string, error) {
	invalid := errors.Invalid.Explain("Invalid avatar")
	switch {
	case len(uploads) == 0:
		return "", invalid.WithField("required", "avatar", "No avatar file provided.")
	case len(uploads) > 1:
		return "", invalid.WithField("max", "avatar", "Only one avatar file can be uploaded.")
	}

	data := uploads[0].Data
	if len(data) > MaxAvatarSize {
		return "", invalid.WithField("max", "avatar", "Avatar file is too large (max 1 MB).")
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), avatarTypes...) {
		return "", invalid.WithField("type", "avatar",
			fmt.Sprintf("Unsupported avatar type %s, use JPEG, PNG or GIF.", mtype.String()))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", invalid.WithField("image", "avatar", "Upload a valid image.")
	}
	if cfg.Width > MaxAvatarDimension || cfg.Height > MaxAvatarDimension {
		return "", invalid.WithField("dimensions", "avatar",
			fmt.Sprintf("Avatar must be at most %dx%d pixels.", MaxAvatarDimension, MaxAvatarDimension))
	}

	return mtype.Extension(), nil
}

// avatarOwner returns the caller's record. Avatars are only ever changed by
// their owner, so id must name the caller.
func (s *Service) avatarOwner(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	if actor == nil {
		return nil, errors.Unauthorized.Explain("Authentication credentials were not provided.")
	}
	if id != actor.ID {
		return nil, errors.Forbidden.Explain("You can only change your own avatar.")
	}
	return s.store.User(ctx, actor.ID)
}

// SetAvatar stores a new avatar for the caller and removes the file it
// replaces.
func (s *Service) SetAvatar(ctx context.Context, actor *models.User, id uint, uploads []Upload) (*models.User, error) {
	user, err := s.avatarOwner(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ext, err := checkAvatar(uploads)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d/%s%s", user.ID, uuid.NewString(), ext)
	if err := s.avatars.Save(ctx, key, uploads[0].Data); err != nil {
		return nil, err
	}
	if err := s.store.SetAvatar(ctx, user.ID, key); err != nil {
		s.removeAvatarFile(ctx, user.ID, key)
		return nil, err
	}
	if user.Avatar != "" {
		s.removeAvatarFile(ctx, user.ID, user.Avatar)
	}

	user.Avatar = key
	s.log.Info("avatar saved", zap.Uint("user_id", user.ID), zap.String("key", key))
	return user, nil
}

// ClearAvatar removes the caller's avatar.
func (s *Service) ClearAvatar(ctx context.Context, actor *models.User, id uint) error {
	user, err := s.avatarOwner(ctx, actor, id)
	if err != nil {
		return err
	}
	if user.Avatar == "" {
		return nil
	}

	if err := s.store.SetAvatar(ctx, user.ID, ""); err != nil {
		return err
	}
	s.removeAvatarFile(ctx, user.ID, user.Avatar)
	return nil
}

func (s *Service) removeAvatarFile(ctx context.Context, userID uint, key string) {
	if err := s.avatars.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete avatar file", zap.Uint("user_id", userID), zap.String("key", key), zap.Error(err))
	}
}
