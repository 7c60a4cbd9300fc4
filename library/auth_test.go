package library

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSeedAdmin(t *testing.T) {
	mgr, _ := newManager(t)

	u, err := mgr.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.Equal(t, 143, u.Visits)
	require.NotNil(t, u.LastLogin)
	assert.True(t, u.LastLogin.Equal(fixedNow))
	assert.Equal(t, "Administrator signed in: المسؤول الرئيسي", mgr.Notifications()[0])

	stored, _ := mgr.GetUser("admin")
	assert.Equal(t, 143, stored.Visits)
}

func TestLoginByEmail(t *testing.T) {
	mgr, _ := newManager(t)

	u, err := mgr.Login(context.Background(), " Dr.Sara@UNI.edu ", "4002")
	require.NoError(t, err)
	assert.Equal(t, "2001", u.ID)
	assert.Equal(t, "Welcome, د. سارة علي", mgr.Notifications()[0])
}

func TestLoginFailures(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "1001", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = mgr.Login(ctx, "nobody", "2002")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, _ := mgr.GetUser("1001")
	u.Status = UserSuspended
	require.NoError(t, mgr.UpdateUser(ctx, u))
	_, err = mgr.Login(ctx, "1001", "2002")
	assert.ErrorIs(t, err, ErrForbidden)

	u, _ = mgr.GetUser("1001")
	assert.Equal(t, 15, u.Visits)
	assert.Nil(t, u.LastLogin)
}

func TestResetPassword(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.ResetPassword(ctx, "1001", "s3cret"))
	u, _ := mgr.GetUser("1001")
	assert.True(t, isBcryptHash(u.Password))
	assert.True(t, u.CheckPassword("s3cret"))
	assert.False(t, u.CheckPassword("2002"))
	assert.Equal(t, "Password reset for أحمد محمد", mgr.Notifications()[0])

	_, err := mgr.Login(ctx, "1001", "s3cret")
	assert.NoError(t, err)

	assert.ErrorIs(t, mgr.ResetPassword(ctx, "ghost", "x"), ErrNotFound)
	var ve *ValidationError
	assert.True(t, errors.As(mgr.ResetPassword(ctx, "1001", ""), &ve))
}

func TestCheckPasswordPlain(t *testing.T) {
	u := User{Password: "2002"}
	assert.True(t, u.CheckPassword("2002"))
	assert.False(t, u.CheckPassword("20021"))
	assert.False(t, User{}.CheckPassword("x"))
}
