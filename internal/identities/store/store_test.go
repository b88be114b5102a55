package store_test

import (
	"context"
	"testing"

	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/Aidin1998/accounts/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserEnrollsMember(t *testing.T) {
	s, _ := testutil.NewStore(t)
	ctx := context.Background()
	org := testutil.SeedOrg(t, s)

	user := testutil.AddMember(t, s, org.Organization.ID, models.RoleReviewer)
	require.NotNil(t, user.ActiveOrganizationID)
	assert.Equal(t, org.Organization.ID, *user.ActiveOrganizationID)

	member, err := s.Membership(ctx, org.Organization.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleReviewer, member.Role)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, _ := testutil.NewStore(t)
	ctx := context.Background()

	in := testutil.FakeUser(0)
	_, err := s.CreateUser(ctx, in)
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, in)
	assert.True(t, errors.Is(err, errors.Conflict))
}

func TestListScopedToOrganization(t *testing.T) {
	s, _ := testutil.NewStore(t)
	ctx := context.Background()
	orgA := testutil.SeedOrg(t, s)
	orgB := testutil.SeedOrg(t, s)

	a1 := testutil.AddMember(t, s, orgA.Organization.ID, models.RoleAnnotator)
	testutil.AddMember(t, s, orgB.Organization.ID, models.RoleAnnotator)

	users, err := s.List(ctx, models.UserFilter{OrganizationID: orgA.Organization.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, orgA.Owner.ID, users[0].ID)
	assert.Equal(t, a1.ID, users[1].ID)

	paged, err := s.List(ctx, models.UserFilter{OrganizationID: orgA.Organization.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, a1.ID, paged[0].ID)

	_, err = s.UserInOrganization(ctx, orgA.Organization.ID, orgB.Owner.ID)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestUpdateAndColumns(t *testing.T) {
	s, _ := testutil.NewStore(t)
	ctx := context.Background()
	org := testutil.SeedOrg(t, s)
	id := org.Owner.ID

	require.NoError(t, s.Update(ctx, id, map[string]interface{}{"first_name": "Grace"}))
	require.NoError(t, s.SetHotkeys(ctx, id, `{"ctrl+s":"annotation:submit"}`))
	require.NoError(t, s.SetAvatar(ctx, id, "avatars/1.png"))

	user, err := s.User(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.FirstName)
	assert.Equal(t, `{"ctrl+s":"annotation:submit"}`, user.CustomHotkeys)
	assert.Equal(t, "avatars/1.png", user.Avatar)
	assert.Equal(t, org.Owner.Email, user.Email)

	err = s.Update(ctx, 9999, map[string]interface{}{"first_name": "x"})
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestReplaceToken(t *testing.T) {
	s, _ := testutil.NewStore(t)
	ctx := context.Background()
	org := testutil.SeedOrg(t, s)
	id := org.Owner.ID

	_, err := s.Token(ctx, id)
	assert.True(t, errors.Is(err, errors.NotFound))

	prev, err := s.ReplaceToken(ctx, id, "aaaa")
	require.NoError(t, err)
	assert.Empty(t, prev)

	prev, err = s.ReplaceToken(ctx, id, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, "aaaa", prev)

	_, err = s.TokenByKey(ctx, "aaaa")
	assert.True(t, errors.Is(err, errors.NotFound))

	token, err := s.TokenByKey(ctx, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, id, token.UserID)
}

func TestDeleteRemovesDependents(t *testing.T) {
	s, _ := testutil.NewStore(t)
	ctx := context.Background()
	org := testutil.SeedOrg(t, s)
	user := testutil.AddMember(t, s, org.Organization.ID, models.RoleAnnotator)
	_, err := s.ReplaceToken(ctx, user.ID, "cccc")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, user.ID))

	_, err = s.User(ctx, user.ID)
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = s.TokenByKey(ctx, "cccc")
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = s.Membership(ctx, org.Organization.ID, user.ID)
	assert.True(t, errors.Is(err, errors.NotFound))

	assert.True(t, errors.Is(s.Delete(ctx, user.ID), errors.NotFound))
}
