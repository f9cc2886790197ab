//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(username, email, hashedPassword string) (domain.Identity, error)
	ByUsername(ctx context.Context, username string) (domain.Identity, error)
	ByID(ctx context.Context, id uuid.UUID) (domain.Identity, error)
	ByEmail(email string) (domain.Identity, error)
	ListOthers(username string, limit int) ([]domain.Identity, error)
}

// UserRepository persists identities in BadgerDB under three key families:
// "user:{username}" holds the record, "email:{email}" and "id:{uuid}" are
// uniqueness/lookup markers pointing back at the username.
type UserRepository struct {
	db *badger.DB
}

// userRecord is the storage shape of an identity. It exists because
// Identity deliberately excludes the password hash from JSON; the store
// is the one place the hash must survive a round trip.
type userRecord struct {
	ID           uuid.UUID     `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"passwordHash"`
	Status       domain.Status `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
}

func toRecord(identity domain.Identity) userRecord {
	return userRecord{
		ID:           identity.ID,
		Username:     identity.Username,
		Email:        identity.Email,
		PasswordHash: identity.PasswordHash,
		Status:       identity.Status,
		CreatedAt:    identity.CreatedAt,
	}
}

func (r userRecord) identity() domain.Identity {
	return domain.Identity{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
	}
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists a new identity. Username and email uniqueness are
// both enforced inside one transaction.
func (u *UserRepository) CreateUser(username, email, hashedPassword string) (domain.Identity, error) {
	identity := domain.Identity{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Status:       domain.StatusOffline,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(toRecord(identity))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		userKey := []byte("user:" + username)
		if _, err := txn.Get(userKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		emailKey := []byte("email:" + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey, data); err != nil {
			return err
		}
		if err := txn.Set(emailKey, []byte(username)); err != nil {
			return err
		}
		return txn.Set([]byte("id:"+identity.ID.String()), []byte(username))
	})
	if err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}

func (u *UserRepository) ByUsername(_ context.Context, username string) (domain.Identity, error) {
	return u.getByKey("user:" + username)
}

func (u *UserRepository) ByID(ctx context.Context, id uuid.UUID) (domain.Identity, error) {
	username, err := u.resolveMarker("id:" + id.String())
	if err != nil {
		return domain.Identity{}, err
	}
	return u.ByUsername(ctx, username)
}

func (u *UserRepository) ByEmail(email string) (domain.Identity, error) {
	username, err := u.resolveMarker("email:" + email)
	if err != nil {
		return domain.Identity{}, err
	}
	return u.getByKey("user:" + username)
}

// ListOthers returns up to limit identities other than the given username,
// in key order. Used as the cold-start suggestion list when a caller has
// no message history yet.
func (u *UserRepository) ListOthers(username string, limit int) ([]domain.Identity, error) {
	prefix := []byte("user:")

	var identities []domain.Identity
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if len(identities) == limit {
				break
			}
			if strings.TrimPrefix(string(it.Item().Key()), "user:") == username {
				continue
			}
			var record userRecord
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			identities = append(identities, record.identity())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return identities, nil
}

func (u *UserRepository) getByKey(key string) (domain.Identity, error) {
	var record userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Identity{}, errors.ErrIdentityNotFound
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return record.identity(), nil
}

func (u *UserRepository) resolveMarker(key string) (string, error) {
	var username string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			username = string(value)
			return nil
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", errors.ErrIdentityNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return username, nil
}
