package services

import (
	"testing"
	"time"

	"gigchat/auth"
	"gigchat/errors"
	"gigchat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Str0ng&LongPassword!"

func newAuthService(t *testing.T) IAuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAuthService(repositories.NewUserRepository(db), time.Hour)
}

func TestAuthService_Register_Issues_Verifiable_Token(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	// When a user registers
	token, err := service.Register("alice@example.com", strongPassword)
	req.NoError(err)
	req.NotEmpty(token)

	// Then the token verifies back to a real identity
	userID, err := auth.VerifyToken(string(token))
	req.NoError(err)

	// And a login with the same credentials names the same identity
	loginToken, err := service.Login("alice@example.com", strongPassword)
	req.NoError(err)
	loginID, err := auth.VerifyToken(string(loginToken))
	req.NoError(err)
	req.Equal(userID, loginID)
}

func TestAuthService_Register_Rejects_Weak_Passwords(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	weak := []string{
		"short1!A",            // under the length floor
		"alllowercase1234!",   // no upper case
		"NoDigitsInHere!Long", // no number
		"NoSpecials12345Long", // no punctuation
	}
	for _, password := range weak {
		_, err := service.Register("bob@example.com", password)
		req.ErrorIs(err, errors.ErrInvalidPassword)
	}

	_, err := service.Register("not-an-email", strongPassword)
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func TestAuthService_Register_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, err := service.Register("carol@example.com", strongPassword)
	req.NoError(err)

	_, err = service.Register("carol@example.com", strongPassword)
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestAuthService_Login_Is_Opaque_On_Failure(t *testing.T) {
	req := require.New(t)
	service := newAuthService(t)

	_, err := service.Register("dave@example.com", strongPassword)
	req.NoError(err)

	// Wrong password and unknown account fail with the same error
	_, err = service.Login("dave@example.com", "Wrong&Password123")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	_, err = service.Login("ghost@example.com", strongPassword)
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}
