//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain/chat"
	"chat-relay/errors"
)

type IUserRepository interface {
	CreateUser(username, passwordHash string) (chat.Identity, error)
	GetUserByUsername(username string) (User, error)
	GetUserByID(id string) (User, error)
	FindUsersByName(names []string) ([]chat.Identity, error)
}

// User is the stored account record. The relay core only ever sees the
// chat.Identity projection; the hash stays inside the repository and the
// auth service.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u User) Identity() chat.Identity {
	return chat.Identity{ID: u.ID, Username: u.Username}
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Keys: "user:name:{username}" holds the record, "user:id:{uuid}" holds
// the username so lookups by id cost one extra hop instead of a scan.
func userNameKey(username string) []byte { return []byte("user:name:" + username) }
func userIDKey(id string) []byte         { return []byte("user:id:" + id) }

// CreateUser persists a new account under a fresh UUID. Username
// uniqueness is enforced inside the write transaction.
func (u *UserRepository) CreateUser(username, passwordHash string) (chat.Identity, error) {
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return chat.Identity{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userNameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userNameKey(username), data); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), []byte(username))
	})
	if err != nil {
		return chat.Identity{}, err
	}

	return user.Identity(), nil
}

func (u *UserRepository) GetUserByUsername(username string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userNameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByID(id string) (User, error) {
	var username string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			username = string(val)
			return nil
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u.GetUserByUsername(username)
}

// FindUsersByName resolves usernames to identities. Unknown names are
// simply absent from the result; callers compare lengths when a partial
// resolution must reject the whole operation.
func (u *UserRepository) FindUsersByName(names []string) ([]chat.Identity, error) {
	identities := make([]chat.Identity, 0, len(names))
	for _, name := range names {
		user, err := u.GetUserByUsername(name)
		if goerrors.Is(err, errors.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		identities = append(identities, user.Identity())
	}
	return identities, nil
}
