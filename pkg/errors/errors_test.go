package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsCarryStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid.Explain("bad")))
	assert.Equal(t, http.StatusMethodNotAllowed, HTTPStatus(MethodNotAllowed))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(New("lookup failed").Wrap(NotFound.Explain("user not found"))))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict.Explain("dup").Wrap(fmt.Errorf("driver"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(nil))
}

func TestIsComparesKind(t *testing.T) {
	err := NotFound.Explain("token not found")
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, Invalid))
	assert.True(t, Is(fmt.Errorf("wrapped: %w", err), NotFound))
}

func TestWithFieldDoesNotShareBacking(t *testing.T) {
	base := Invalid.Explain("validation error").WithField("required", "email", "")
	a := base.WithField("max", "a", "")
	b := base.WithField("max", "b", "")
	assert.Equal(t, "a", a.Fields[1].Field)
	assert.Equal(t, "b", b.Fields[1].Field)
	assert.Len(t, base.Fields, 1)
}

func TestToProblem(t *testing.T) {
	pd := ToProblem(Invalid.Explain("Invalid hotkeys configuration").
		WithField("hotkey", "custom_hotkeys[x]", "bad key"), "/api/hotkeys")
	assert.Equal(t, http.StatusBadRequest, pd.Status)
	assert.Equal(t, TypeValidationError, pd.Type)
	require.Len(t, pd.Errors, 1)
	assert.Equal(t, "custom_hotkeys[x]", pd.Errors[0].Field)
	assert.Equal(t, "hotkey", pd.Errors[0].Code)

	pd = ToProblem(MethodNotAllowed.Explain("Cannot update read-only field: email"), "/api/users/1")
	assert.Equal(t, http.StatusMethodNotAllowed, pd.Status)
	assert.Equal(t, "Cannot update read-only field: email", pd.Detail)

	pd = ToProblem(fmt.Errorf("sql: connection refused"), "/")
	assert.Equal(t, http.StatusInternalServerError, pd.Status)
	assert.Equal(t, "An unexpected error occurred", pd.Detail)

	pd = ToProblem(Internal.Explain("Failed to update hotkeys configuration").Wrap(fmt.Errorf("disk")), "/")
	assert.Equal(t, "Failed to update hotkeys configuration", pd.Detail)

	pd = ToProblem(Unavailable.Explain("try again").Wrap(fmt.Errorf("redis down")), "/")
	assert.Equal(t, http.StatusServiceUnavailable, pd.Status)
	assert.Equal(t, TypeUnavailable, pd.Type)
	assert.Equal(t, "try again", pd.Detail)

	body, err := json.Marshal(NewRateLimitError("slow down", "/").WithExtra("retry_after", 3))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"retry_after":3`)
}
