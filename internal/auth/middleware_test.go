package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Aidin1998/accounts/common/apiutil"
	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	users   map[string]*models.User
	members map[uint]string
}

func (d *fakeDirectory) Authenticate(_ context.Context, key string) (*models.User, error) {
	if u, ok := d.users[key]; ok {
		return u, nil
	}
	return nil, errors.Unauthorized.Explain("Invalid token.")
}

func (d *fakeDirectory) Membership(_ context.Context, orgID, userID uint) (*models.OrganizationMember, error) {
	if role, ok := d.members[userID]; ok {
		return &models.OrganizationMember{OrganizationID: orgID, UserID: userID, Role: role}, nil
	}
	return nil, errors.NotFound.Explain("membership not found")
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	org := uint(1)
	dir := &fakeDirectory{
		users: map[string]*models.User{
			"owner":     {ID: 1, ActiveOrganizationID: &org},
			"annotator": {ID: 2, ActiveOrganizationID: &org},
			"outsider":  {ID: 3, ActiveOrganizationID: &org},
			"homeless":  {ID: 4},
		},
		members: map[uint]string{1: models.RoleOwner, 2: models.RoleAnnotator},
	}
	m := NewMiddleware(zap.NewNop(), dir, dir, NewPermissions(nil))

	r := gin.New()
	r.Use(apiutil.ErrorMiddleware(zap.NewNop()))
	g := r.Group("/", m.Authenticate())
	g.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID}) })
	g.GET("/change", m.Require(OrganizationsChange), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.GET("/view", m.Require(OrganizationsView), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r *gin.Engine, path, header string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthenticate(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Token nope"))
	assert.Equal(t, http.StatusOK, do(r, "/me", "Token owner"))
	assert.Equal(t, http.StatusOK, do(r, "/me", "Bearer owner"))
}

func TestRequire(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusOK, do(r, "/change", "Token owner"))
	assert.Equal(t, http.StatusForbidden, do(r, "/change", "Token annotator"))
	assert.Equal(t, http.StatusOK, do(r, "/view", "Token annotator"))
	assert.Equal(t, http.StatusForbidden, do(r, "/view", "Token outsider"))
	assert.Equal(t, http.StatusForbidden, do(r, "/view", "Token homeless"))
}

func TestPermissionOverrides(t *testing.T) {
	p := NewPermissions(map[string][]string{models.RoleAnnotator: {"organizations_change"}})
	assert.True(t, p.Allowed(models.RoleAnnotator, OrganizationsChange))
	assert.False(t, p.Allowed(models.RoleAnnotator, AvatarAny))
	assert.True(t, p.Allowed(models.RoleManager, AvatarAny))
	assert.False(t, p.Allowed("unknown", OrganizationsView))
}

func TestTokenFromHeader(t *testing.T) {
	key, ok := tokenFromHeader("Token  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", key)
	_, ok = tokenFromHeader("Token")
	assert.False(t, ok)
}
