package api

import (
	"net/http"

	"github.com/Aidin1998/accounts/internal/auth"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) getHotkeys(c *gin.Context) {
	config, err := s.accounts.GetHotkeys(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.HotkeysPayload{CustomHotkeys: config})
}

func (s *Server) updateHotkeys(c *gin.Context) {
	var payload models.HotkeysPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(errors.Invalid.Explain("Invalid hotkeys configuration").
			WithField("invalid", "custom_hotkeys", "Expected an object of hotkey to action strings.").
			Wrap(err))
		return
	}

	config, err := s.accounts.UpdateHotkeys(c.Request.Context(), auth.CurrentUser(c), payload.CustomHotkeys)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.HotkeysPayload{CustomHotkeys: config})
}
