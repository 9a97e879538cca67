//go:generate go run go.uber.org/mock/mockgen -source=agreement.go -destination=../mocks/mock_agreement_repository.go -package=mocks
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

// IAgreementLookup is the read side consumed by the authorization gate.
type IAgreementLookup interface {
	GetAgreement(id uuid.UUID) (domain.Agreement, error)
}

type IAgreementRepository interface {
	IAgreementLookup
	SaveAgreement(agreement domain.Agreement) error
	ListAgreements() ([]domain.Agreement, error)
}

type AgreementRepository struct {
	db *badger.DB
}

func NewAgreementRepository(db *badger.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

type storedAgreement struct {
	ID        string `json:"id"`
	GigID     string `json:"gig_id"`
	ClientID  string `json:"client_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func (r *AgreementRepository) SaveAgreement(agreement domain.Agreement) error {
	data, err := json.Marshal(storedAgreement{
		ID:        agreement.ID.String(),
		GigID:     agreement.GigID.String(),
		ClientID:  agreement.ClientID.String(),
		Status:    string(agreement.Status),
		CreatedAt: agreement.CreatedAt.UnixNano(),
	})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(agreementKey(agreement.ID), data)
	})
}

func (r *AgreementRepository) GetAgreement(id uuid.UUID) (domain.Agreement, error) {
	var stored storedAgreement
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(agreementKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("agreement %s: %w", id, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &stored)
		})
	})
	if err != nil {
		return domain.Agreement{}, err
	}
	return toAgreement(stored)
}

// ListAgreements returns every stored agreement. The conversation summary
// filters parties out of this set; the volume per deployment is small.
func (r *AgreementRepository) ListAgreements() ([]domain.Agreement, error) {
	var agreements []domain.Agreement
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("agreement:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored storedAgreement
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &stored)
			})
			if err != nil {
				return err
			}
			agreement, err := toAgreement(stored)
			if err != nil {
				return err
			}
			agreements = append(agreements, agreement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agreements, nil
}

func agreementKey(id uuid.UUID) []byte {
	return []byte("agreement:" + id.String())
}

func toAgreement(stored storedAgreement) (domain.Agreement, error) {
	id, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Agreement{}, err
	}
	gigID, err := uuid.Parse(stored.GigID)
	if err != nil {
		return domain.Agreement{}, err
	}
	clientID, err := uuid.Parse(stored.ClientID)
	if err != nil {
		return domain.Agreement{}, err
	}
	return domain.Agreement{
		ID:        id,
		GigID:     gigID,
		ClientID:  clientID,
		Status:    domain.Status(stored.Status),
		CreatedAt: time.Unix(0, stored.CreatedAt).UTC(),
	}, nil
}
