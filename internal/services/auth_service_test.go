package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/pkg/utils"
)

func strPtr(s string) *string { return &s }

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	user, err := f.auth.RegisterStaff(f.ctx, admin, RegisterStaffRequest{Username: "priya", Password: "counter-123", FullName: strPtr("Priya S")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "counter-123", user.PasswordHash)

	resp, err := f.auth.Login(f.ctx, LoginRequest{Username: "Priya", Password: "counter-123"})
	require.NoError(t, err)
	claims, err := utils.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)

	_, err = f.auth.Login(f.ctx, LoginRequest{Username: "priya", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(f.ctx, LoginRequest{Username: "nobody", Password: "counter-123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.RegisterStaff(f.ctx, admin, RegisterStaffRequest{Username: "PRIYA", Password: "another-123"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestRegisterStaff_Validation(t *testing.T) {
	f := newFixture(t)

	for name, req := range map[string]RegisterStaffRequest{
		"short password": {Username: "a", Password: "short"},
		"bad role":       {Username: "a", Password: "long-enough", Role: "Owner"},
		"blank username": {Username: "  ", Password: "long-enough"},
	} {
		_, err := f.auth.RegisterStaff(f.ctx, admin, req)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestUpdateStaff_DeactivationBlocksLogin(t *testing.T) {
	f := newFixture(t)
	user, err := f.auth.RegisterStaff(f.ctx, admin, RegisterStaffRequest{Username: "sam", Password: "counter-123"})
	require.NoError(t, err)

	inactive := false
	_, err = f.auth.UpdateStaff(f.ctx, admin, user.ID, UpdateStaffRequest{IsActive: &inactive})
	require.NoError(t, err)
	_, err = f.auth.Login(f.ctx, LoginRequest{Username: "sam", Password: "counter-123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.UpdateStaff(f.ctx, admin, "missing", UpdateStaffRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEnsureAdmin_AndLastAdminGuard(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.auth.EnsureAdmin(f.ctx, "owner", "owner-pass-1"))
	require.NoError(t, f.auth.EnsureAdmin(f.ctx, "someone", "else-pass-1"))

	staff, err := f.auth.ListStaff(f.ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1, "bootstrap runs only while no admin exists")
	owner := staff[0]
	assert.Equal(t, models.RoleAdmin, owner.Role)

	demote := models.RoleStaff
	_, err = f.auth.UpdateStaff(f.ctx, admin, owner.ID, UpdateStaffRequest{Role: &demote})
	assert.ErrorIs(t, err, ErrLastAdmin)

	_, err = f.auth.RegisterStaff(f.ctx, admin, RegisterStaffRequest{Username: "second", Password: "second-pass", Role: models.RoleAdmin})
	require.NoError(t, err)
	updated, err := f.auth.UpdateStaff(f.ctx, admin, owner.ID, UpdateStaffRequest{Role: &demote})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, updated.Role)

	profile, err := f.auth.GetProfile(f.ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner", profile.Username)
	_, err = f.auth.GetProfile(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
