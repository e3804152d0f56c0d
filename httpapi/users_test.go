package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcwatch "github.com/svcwatch/svcwatch"
)

func seedAdminAndUser(t *testing.T, h *apiHarness) (adminToken, userToken string) {
	t.Helper()
	h.seedUser(t, "admin-1", "admin@example.com", "admin password", func(u *svcwatch.UserRecord) {
		u.IsSuperuser = true
	})
	h.seedUser(t, "user-1", "bob@example.com", "bob password 1", nil)
	adminToken, _ = h.login(t, "admin@example.com", "admin password")
	userToken, _ = h.login(t, "bob@example.com", "bob password 1")
	return adminToken, userToken
}

func TestListUsersRequiresSuperuser(t *testing.T) {
	h := newAPIHarness(t)
	admin, user := seedAdminAndUser(t, h)

	rec := h.do(t, jsonRequest(t, http.MethodGet, "/api/v1/users", user, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, jsonRequest(t, http.MethodGet, "/api/v1/users", admin, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body usersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Data, 2)
}

func TestRegisterUserSendsSetupLink(t *testing.T) {
	h := newAPIHarness(t)
	admin, _ := seedAdminAndUser(t, h)

	rec := h.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/adduser", admin,
		registerUserRequest{Username: "carol", Email: "carol@example.com", IsActive: true}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Password set up email sent")

	tok := h.mailer.setupTokens["carol@example.com"]
	require.NotEmpty(t, tok)

	rec = h.do(t, jsonRequest(t, http.MethodPost, "/api/v1/setup-password", "",
		map[string]string{"token": tok, "new_password": "carol password"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	h.login(t, "carol@example.com", "carol password")
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	h := newAPIHarness(t)
	admin, _ := seedAdminAndUser(t, h)

	rec := h.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/adduser", admin,
		registerUserRequest{Username: "bob2", Email: "bob@example.com", IsActive: true}))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUserFlagsAndSelfGuard(t *testing.T) {
	h := newAPIHarness(t)
	admin, _ := seedAdminAndUser(t, h)

	canEdit := true
	rec := h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/user-1", admin,
		updateUserRequest{CanEdit: &canEdit}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.CanEdit)

	// A superuser cannot strip their own superuser flag.
	off := false
	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/admin-1", admin,
		updateUserRequest{IsSuperuser: &off}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/ghost", admin,
		updateUserRequest{CanEdit: &canEdit}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	h := newAPIHarness(t)
	admin, _ := seedAdminAndUser(t, h)

	// Self-deletion is refused.
	rec := h.do(t, jsonRequest(t, http.MethodDelete, "/api/v1/users/admin-1", admin, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, jsonRequest(t, http.MethodDelete, "/api/v1/users/user-1", admin, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "User deleted successfully")

	rec = h.do(t, jsonRequest(t, http.MethodGet, "/api/v1/users/user-1", admin, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	h := newAPIHarness(t)
	_, user := seedAdminAndUser(t, h)

	name := "robert"
	rec := h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/me", user,
		updateMeRequest{Username: &name}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "robert", me.Username)

	// Taking another account's email is a conflict.
	taken := "admin@example.com"
	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/me", user,
		updateMeRequest{Email: &taken}))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateMyPassword(t *testing.T) {
	h := newAPIHarness(t)
	_, user := seedAdminAndUser(t, h)

	rec := h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/me/password", user,
		updatePasswordRequest{CurrentPassword: "wrong", NewPassword: "next password 9"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/me/password", user,
		updatePasswordRequest{CurrentPassword: "bob password 1", NewPassword: "bob password 1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "new password must differ")

	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/me/password", user,
		updatePasswordRequest{CurrentPassword: "bob password 1", NewPassword: "next password 9"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	h.login(t, "bob@example.com", "next password 9")
}

func TestUserServicesRoundTrip(t *testing.T) {
	h := newAPIHarness(t)
	admin, _ := seedAdminAndUser(t, h)

	rec := h.do(t, jsonRequest(t, http.MethodPost, "/api/v1/services", admin,
		createServiceRequest{Name: "billing", SubName: "invoices"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, jsonRequest(t, http.MethodGet, "/api/v1/services", admin, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var services servicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	require.Len(t, services.Data, 1)
	serviceID := services.Data[0].ID

	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/user-1/services", admin,
		replaceUserServicesRequest{AddedServices: []string{serviceID}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, jsonRequest(t, http.MethodGet, "/api/v1/users/user-1/services", admin, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var assigned []serviceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))
	require.Len(t, assigned, 1)
	assert.Equal(t, serviceID, assigned[0].ID)

	// An unknown id in the set rejects the whole update.
	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/user-1/services", admin,
		replaceUserServicesRequest{AddedServices: []string{serviceID, "ghost"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Posting an empty set clears every association.
	rec = h.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/user-1/services", admin,
		replaceUserServicesRequest{AddedServices: []string{}}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, jsonRequest(t, http.MethodGet, "/api/v1/users/user-1/services", admin, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assigned = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))
	assert.Empty(t, assigned)
}
