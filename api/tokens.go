package api

import (
	"net/http"

	"github.com/Aidin1998/accounts/internal/auth"
	"github.com/gin-gonic/gin"
)

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) resetToken(c *gin.Context) {
	key, err := s.accounts.ResetToken(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{Token: key})
}

func (s *Server) getToken(c *gin.Context) {
	key, err := s.accounts.GetToken(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: key})
}
