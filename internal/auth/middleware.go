// Package auth authenticates API tokens and checks organization permissions.
package auth

import (
	"context"
	"strings"

	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userKey = "user"

// Authenticator resolves a token key to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*models.User, error)
}

// MembershipLookup returns a user's membership in an organization.
type MembershipLookup interface {
	Membership(ctx context.Context, orgID, userID uint) (*models.OrganizationMember, error)
}

type Middleware struct {
	log     *zap.Logger
	auth    Authenticator
	members MembershipLookup
	perms   *Permissions
}

func NewMiddleware(log *zap.Logger, auth Authenticator, members MembershipLookup, perms *Permissions) *Middleware {
	return &Middleware{log: log, auth: auth, members: members, perms: perms}
}

// tokenFromHeader accepts "Token <key>" and "Bearer <key>".
func tokenFromHeader(header string) (string, bool) {
	scheme, key, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		key = strings.TrimSpace(key)
		return key, key != ""
	}
	return "", false
}

// Authenticate rejects requests without a valid API token and stores the
// caller on the context.
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, errors.Unauthorized.Explain("Authentication credentials were not provided."))
			return
		}
		key, ok := tokenFromHeader(header)
		if !ok {
			abort(c, errors.Unauthorized.Explain("Invalid token header."))
			return
		}

		user, err := m.auth.Authenticate(c.Request.Context(), key)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// Require allows the request only when the caller's role in the active
// organization grants perm.
func (m *Middleware) Require(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abort(c, errors.Unauthorized.Explain("Authentication credentials were not provided."))
			return
		}
		if user.ActiveOrganizationID == nil {
			abort(c, errors.Forbidden.Explain("You have no active organization."))
			return
		}

		member, err := m.members.Membership(c.Request.Context(), *user.ActiveOrganizationID, user.ID)
		if err != nil {
			if errors.Is(err, errors.NotFound) {
				abort(c, errors.Forbidden.Explain("You are not a member of the active organization."))
				return
			}
			abort(c, err)
			return
		}

		if !m.perms.Allowed(member.Role, perm) {
			m.log.Debug("permission denied",
				zap.Uint("user_id", user.ID),
				zap.String("role", member.Role),
				zap.String("permission", string(perm)))
			abort(c, errors.Forbidden.Explain("You do not have permission to perform this action."))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
