package services

import (
	"context"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*AuthService, repositories.IUserRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	return NewAuthService(users, time.Hour), users
}

func TestAuthService_Register_Then_Login(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture(t)

	// When a user registers
	identity, token, err := service.Register("alice", "alice@relay.dev", "s3cret!")
	req.NoError(err)
	req.Equal("alice", identity.Username)
	req.NotEmpty(token)

	// Then the issued token carries the identity
	claims, err := auth.ValidateToken(string(token))
	req.NoError(err)
	req.Equal("alice", claims.Username)

	// And logging in with the same credentials works
	logged, loginToken, err := service.Login("alice@relay.dev", "s3cret!")
	req.NoError(err)
	req.Equal(identity.ID, logged.ID)
	req.NotEmpty(loginToken)
}

func TestAuthService_Register_Never_Stores_Plain_Password(t *testing.T) {
	req := require.New(t)
	service, users := newAuthFixture(t)

	_, _, err := service.Register("alice", "alice@relay.dev", "s3cret!")
	req.NoError(err)

	stored, err := users.ByEmail("alice@relay.dev")
	req.NoError(err)
	req.NotEqual("s3cret!", stored.PasswordHash)
	req.Contains(stored.PasswordHash, "$argon2id$")
}

func TestAuthService_Register_Rejects_Duplicate(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture(t)
	_, _, err := service.Register("alice", "alice@relay.dev", "s3cret!")
	req.NoError(err)

	_, _, err = service.Register("alice", "again@relay.dev", "s3cret!")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestAuthService_Register_Rejects_Invalid_Payload(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture(t)

	// Username too short, email malformed, password too short
	_, _, err := service.Register("al", "not-an-email", "123")
	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestAuthService_Register_Rejects_Username_With_Key_Separators(t *testing.T) {
	req := require.New(t)
	service, users := newAuthFixture(t)

	// A name like "abc|def" would collide with the conversation key of
	// the pair {abc, def}; registration is the choke point keeping such
	// names out of the store entirely.
	for _, username := range []string{"abc|def", "abc:def"} {
		_, _, err := service.Register(username, username[:3]+"@relay.dev", "s3cret!")
		req.ErrorIs(err, errors.ErrInvalidPayload)

		_, err = users.ByUsername(context.Background(), username)
		req.ErrorIs(err, errors.ErrIdentityNotFound)
	}
}

func TestAuthService_Login_Wrong_Password_Is_Generic(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture(t)
	_, _, err := service.Register("alice", "alice@relay.dev", "s3cret!")
	req.NoError(err)

	// When the password is wrong
	_, _, err = service.Login("alice@relay.dev", "wrong!!")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestAuthService_Login_Unknown_Email_Is_Generic(t *testing.T) {
	req := require.New(t)
	service, _ := newAuthFixture(t)

	// Unknown account and bad password are indistinguishable to the caller
	_, _, err := service.Login("ghost@relay.dev", "whatever")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}
