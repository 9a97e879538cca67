package repositories

import (
	"testing"
	"time"

	"gigchat/domain"
	"gigchat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAgreementRepository_Save_And_Get(t *testing.T) {
	req := require.New(t)
	repo := NewAgreementRepository(openTestDB(t))

	agreement := domain.Agreement{
		ID:        uuid.New(),
		GigID:     uuid.New(),
		ClientID:  uuid.New(),
		Status:    domain.StatusAccepted,
		CreatedAt: time.Now().UTC().Truncate(time.Nanosecond),
	}

	// When the agreement is saved and read back
	req.NoError(repo.SaveAgreement(agreement))
	stored, err := repo.GetAgreement(agreement.ID)

	// Then the round trip preserves every field
	req.NoError(err)
	req.Equal(agreement, stored)
}

func TestAgreementRepository_Get_Unknown(t *testing.T) {
	req := require.New(t)
	repo := NewAgreementRepository(openTestDB(t))

	_, err := repo.GetAgreement(uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestAgreementRepository_Save_Updates_Status(t *testing.T) {
	req := require.New(t)
	repo := NewAgreementRepository(openTestDB(t))

	// Given a pending agreement
	agreement := domain.Agreement{
		ID:        uuid.New(),
		GigID:     uuid.New(),
		ClientID:  uuid.New(),
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	req.NoError(repo.SaveAgreement(agreement))

	// When it transitions to accepted
	agreement.Status = domain.StatusAccepted
	req.NoError(repo.SaveAgreement(agreement))

	// Then the stored status follows
	stored, err := repo.GetAgreement(agreement.ID)
	req.NoError(err)
	req.Equal(domain.StatusAccepted, stored.Status)
}

func TestAgreementRepository_List(t *testing.T) {
	req := require.New(t)
	repo := NewAgreementRepository(openTestDB(t))

	// Given three stored agreements
	ids := make(map[uuid.UUID]struct{})
	for i := 0; i < 3; i++ {
		agreement := domain.Agreement{
			ID:        uuid.New(),
			GigID:     uuid.New(),
			ClientID:  uuid.New(),
			Status:    domain.StatusAccepted,
			CreatedAt: time.Now().UTC(),
		}
		req.NoError(repo.SaveAgreement(agreement))
		ids[agreement.ID] = struct{}{}
	}

	// When all agreements are listed
	agreements, err := repo.ListAgreements()
	req.NoError(err)

	// Then every saved one is present
	req.Len(agreements, 3)
	for _, agreement := range agreements {
		req.Contains(ids, agreement.ID)
	}
}

func TestUserRepository_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	// Given a registered user
	id, err := repo.CreateUser("alice@example.com", "hash-1")
	req.NoError(err)
	req.NotEqual(uuid.Nil, id)

	// When the same email registers again
	_, err = repo.CreateUser("alice@example.com", "hash-2")

	// Then the duplicate is rejected and the original is intact
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
	user, err := repo.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(id, user.ID)
	req.Equal("hash-1", user.PasswordHash)
}

func TestUserRepository_Get_Unknown_Email(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestGigRepository_Save_And_Get(t *testing.T) {
	req := require.New(t)
	repo := NewGigRepository(openTestDB(t))

	gig := domain.Gig{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Title:     "logo design",
		CreatedAt: time.Now().UTC(),
	}

	req.NoError(repo.SaveGig(gig))
	stored, err := repo.GetGig(gig.ID)
	req.NoError(err)
	req.Equal(gig, stored)

	_, err = repo.GetGig(uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}
