package api

import (
	"io"
	"net/http"

	"github.com/Aidin1998/accounts/internal/auth"
	"github.com/Aidin1998/accounts/internal/identities"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/gin-gonic/gin"
)

// maxAvatarBody bounds the whole multipart body: one avatar plus form overhead.
const maxAvatarBody = identities.MaxAvatarSize + 64<<10

// readUploads reads every file of the multipart form, each capped one byte
// past the avatar limit so oversized files are still detected.
func readUploads(c *gin.Context) ([]identities.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBody)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.Invalid.Explain("Invalid avatar").
				WithField("max", "avatar", "Avatar file is too large (max 1 MB).")
		}
		return nil, errors.Invalid.Explain("Invalid avatar").
			WithField("required", "avatar", "Expected a multipart form with one file.").Wrap(err)
	}

	var uploads []identities.Upload
	for _, files := range form.File {
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return nil, errors.New("failed to open upload").Wrap(err)
			}
			data, err := io.ReadAll(io.LimitReader(f, identities.MaxAvatarSize+1))
			_ = f.Close()
			if err != nil {
				return nil, errors.New("failed to read upload").Wrap(err)
			}
			uploads = append(uploads, identities.Upload{Filename: fh.Filename, Data: data})
		}
	}
	return uploads, nil
}

func (s *Server) setAvatar(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	uploads, err := readUploads(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := s.accounts.SetAvatar(c.Request.Context(), auth.CurrentUser(c), id, uploads); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "avatar saved"})
}

func (s *Server) clearAvatar(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.accounts.ClearAvatar(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
