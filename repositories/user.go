//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"gigchat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (uuid.UUID, error)
	GetUserByEmail(email string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository-level representation of an account.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type storedUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    int64  `json:"created_at"`
}

// CreateUser persists a new account keyed by email and returns the
// generated user identifier.
func (u *UserRepository) CreateUser(email, hashedPassword string) (uuid.UUID, error) {
	newID := uuid.New()
	data, err := json.Marshal(storedUser{
		ID:           newID.String(),
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().Unix(),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte("user:" + email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return newID, nil
}

func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var stored storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:" + email))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("user %s: %w", email, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err != nil {
		return User{}, err
	}

	id, err := uuid.Parse(stored.ID)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           id,
		Email:        stored.Email,
		PasswordHash: stored.PasswordHash,
		CreatedAt:    time.Unix(stored.CreatedAt, 0).UTC(),
	}, nil
}
