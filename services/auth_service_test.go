package services

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
)

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	tokens := auth.NewTokenManager("test-secret-used-only-here", time.Hour)
	return NewAuthService(users, tokens)
}

const goodPassword = "Str0ng&Secret!pass"

func TestAuthService_Register_Then_Login(t *testing.T) {
	req := require.New(t)
	service := newAuthFixture(t)

	// When registering a fresh account
	token, identity, err := service.Register("alice", goodPassword)
	req.NoError(err)
	req.NotEmpty(token)
	req.Equal("alice", identity.Username)

	// Then logging in with the same credentials succeeds
	_, loggedIn, err := service.Login("alice", goodPassword)
	req.NoError(err)
	req.Equal(identity, loggedIn)
}

func TestAuthService_Register_Rejects_Weak_Password(t *testing.T) {
	req := require.New(t)
	service := newAuthFixture(t)

	_, _, err := service.Register("alice", "password")
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func TestAuthService_Register_Rejects_Taken_Username(t *testing.T) {
	req := require.New(t)
	service := newAuthFixture(t)

	_, _, err := service.Register("alice", goodPassword)
	req.NoError(err)

	_, _, err = service.Register("alice", goodPassword)
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestAuthService_Login_Failures_Are_Indistinct(t *testing.T) {
	req := require.New(t)
	service := newAuthFixture(t)

	_, _, err := service.Register("alice", goodPassword)
	req.NoError(err)

	// Wrong password and unknown account come back as the same error, so
	// responses cannot be used to probe which usernames exist.
	_, _, wrongPassword := service.Login("alice", "Wr0ng&Secret!pass")
	req.ErrorIs(wrongPassword, errors.ErrInvalidCredentials)

	_, _, unknownUser := service.Login("nobody", goodPassword)
	req.ErrorIs(unknownUser, errors.ErrInvalidCredentials)

	req.Equal(wrongPassword.Error(), unknownUser.Error())
}

func TestAuthService_VerifyCredential(t *testing.T) {
	req := require.New(t)
	service := newAuthFixture(t)

	token, identity, err := service.Register("alice", goodPassword)
	req.NoError(err)

	verified, err := service.VerifyCredential(context.Background(), string(token))
	req.NoError(err)
	req.Equal(identity, verified)

	_, err = service.VerifyCredential(context.Background(), "not-a-jwt")
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestAuthService_VerifyCredential_Honors_Deadline(t *testing.T) {
	req := require.New(t)
	service := newAuthFixture(t)

	token, _, err := service.Register("alice", goodPassword)
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = service.VerifyCredential(ctx, string(token))
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}