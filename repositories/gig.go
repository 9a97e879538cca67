//go:generate go run go.uber.org/mock/mockgen -source=gig.go -destination=../mocks/mock_gig_repository.go -package=mocks
package repositories

import (
	"fmt"
	"time"

	"gigchat/domain"
	"gigchat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type IGigRepository interface {
	SaveGig(gig domain.Gig) error
	GetGig(id uuid.UUID) (domain.Gig, error)
}

type GigRepository struct {
	db *badger.DB
}

func NewGigRepository(db *badger.DB) *GigRepository {
	return &GigRepository{db: db}
}

type storedGig struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
}

func (r *GigRepository) SaveGig(gig domain.Gig) error {
	data, err := json.Marshal(storedGig{
		ID:        gig.ID.String(),
		OwnerID:   gig.OwnerID.String(),
		Title:     gig.Title,
		CreatedAt: gig.CreatedAt.UnixNano(),
	})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gigKey(gig.ID), data)
	})
}

func (r *GigRepository) GetGig(id uuid.UUID) (domain.Gig, error) {
	var stored storedGig
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gigKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("gig %s: %w", id, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &stored)
		})
	})
	if err != nil {
		return domain.Gig{}, err
	}

	gigID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Gig{}, err
	}
	ownerID, err := uuid.Parse(stored.OwnerID)
	if err != nil {
		return domain.Gig{}, err
	}
	return domain.Gig{
		ID:        gigID,
		OwnerID:   ownerID,
		Title:     stored.Title,
		CreatedAt: time.Unix(0, stored.CreatedAt).UTC(),
	}, nil
}

func gigKey(id uuid.UUID) []byte {
	return []byte("gig:" + id.String())
}
