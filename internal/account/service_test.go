package account

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookrag/internal/auth"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	return db
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc := NewService(newTestDB(t), auth.NewJWTService("test-secret", "bookrag"))

	user, err := svc.Register("alice", "s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "alice", user.Username)
	require.NotEqual(t, "s3cret-pass", user.PasswordHash)

	loggedIn, pair, err := svc.Login("alice", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)
	require.NotEmpty(t, pair.AccessToken)
}

func TestService_RegisterDuplicate(t *testing.T) {
	svc := NewService(newTestDB(t), auth.NewJWTService("test-secret", "bookrag"))

	_, err := svc.Register("alice", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Register("alice", "another-pass")
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestService_LoginWrongPassword(t *testing.T) {
	svc := NewService(newTestDB(t), auth.NewJWTService("test-secret", "bookrag"))

	_, err := svc.Register("alice", "s3cret-pass")
	require.NoError(t, err)

	_, _, err = svc.Login("alice", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
