package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Aidin1998/accounts/internal/auth"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/gin-gonic/gin"
)

// userResponse is the public representation of a user
type userResponse struct {
	ID                 uint      `json:"id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	LastActivity       time.Time `json:"last_activity"`
	Avatar             *string   `json:"avatar"`
	Initials           string    `json:"initials"`
	Phone              string    `json:"phone"`
	ActiveOrganization *uint     `json:"active_organization"`
	AllowNewsletters   bool      `json:"allow_newsletters"`
	DateJoined         time.Time `json:"date_joined"`
}

func (s *Server) mapUserToResponse(user *models.User) userResponse {
	resp := userResponse{
		ID:                 user.ID,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		Username:           user.Username,
		Email:              user.Email,
		LastActivity:       user.LastActivity,
		Initials:           user.Initials(),
		Phone:              user.Phone,
		ActiveOrganization: user.ActiveOrganizationID,
		AllowNewsletters:   user.AllowNewsletters,
		DateJoined:         user.DateJoined,
	}
	if url := s.accounts.AvatarURL(user); url != "" {
		resp.Avatar = &url
	}
	return resp
}

func userID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NotFound.Explain("user not found")
	}
	return uint(id), nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.Invalid.Explain("invalid %s", name).WithField("invalid", name, "A positive integer is required.")
	}
	return n, nil
}

func (s *Server) listUsers(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		_ = c.Error(err)
		return
	}
	pageSize, err := queryInt(c, "page_size")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if page > 0 && pageSize == 0 {
		pageSize = 100
	}

	users, err := s.accounts.ListUsers(c.Request.Context(), auth.CurrentUser(c), page, pageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, s.mapUserToResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	user, err := s.accounts.CreateUser(c.Request.Context(), auth.CurrentUser(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, s.mapUserToResponse(user))
}

func (s *Server) getUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := s.accounts.GetUser(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s.mapUserToResponse(user))
}

func (s *Server) updateUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	fields := map[string]any{}
	if err := c.ShouldBindJSON(&fields); err != nil && err != io.EOF {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	user, update, err := s.accounts.UpdateUser(c.Request.Context(), auth.CurrentUser(c), id, fields)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if update != nil {
		s.newsletter.Publish(c.Request.Context(), update)
	}
	c.JSON(http.StatusOK, s.mapUserToResponse(user))
}

func (s *Server) deleteUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.accounts.DeleteUser(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) whoAmI(c *gin.Context) {
	user, err := s.accounts.WhoAmI(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s.mapUserToResponse(user))
}
