package services

import (
	"log/slog"
	"testing"
	"time"

	"gigchat/domain"
	"gigchat/errors"
	"gigchat/moderation"
	"gigchat/repositories"
	"gigchat/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fixture wires the service stack onto a throwaway store.
type fixture struct {
	service    *ChatService
	messages   *repositories.MessageRepository
	agreements *repositories.AgreementRepository
	gigs       *repositories.GigRepository
	registry   *runtime.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	messages := repositories.NewMessageRepository(db, log)
	agreements := repositories.NewAgreementRepository(db)
	gigs := repositories.NewGigRepository(db)
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(log, registry)

	moderator, err := moderation.NewModerator([]string{"scam"}, '*')
	require.NoError(t, err)

	gate := NewGate(agreements, gigs)
	service := NewChatService(log, gate, messages, agreements, gigs,
		registry, broadcaster, &moderator)

	return &fixture{
		service:    service,
		messages:   messages,
		agreements: agreements,
		gigs:       gigs,
		registry:   registry,
	}
}

// seedRoom stores an accepted agreement between a fresh client and the
// owner of a fresh gig, and returns the participants.
func seedRoom(t *testing.T, f *fixture) (room domain.RoomID, client, owner uuid.UUID) {
	t.Helper()
	return seedRoomWithClient(t, f, uuid.New())
}

func seedRoomWithClient(t *testing.T, f *fixture, client uuid.UUID) (room domain.RoomID, clientID, owner uuid.UUID) {
	t.Helper()
	owner = uuid.New()

	gig := domain.Gig{ID: uuid.New(), OwnerID: owner, Title: "gig", CreatedAt: time.Now().UTC()}
	require.NoError(t, f.gigs.SaveGig(gig))

	agreement := domain.Agreement{
		ID:        uuid.New(),
		GigID:     gig.ID,
		ClientID:  client,
		Status:    domain.StatusAccepted,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.agreements.SaveAgreement(agreement))
	return agreement.Room(), client, owner
}

func TestGate_Allows_Both_Parties(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	room, client, owner := seedRoom(t, f)
	gate := NewGate(f.agreements, f.gigs)

	// When each party asks for access
	agreement, err := gate.Authorize(room, client)
	req.NoError(err)
	req.Equal(room, agreement.Room())

	_, err = gate.Authorize(room, owner)
	req.NoError(err)
}

func TestGate_Rejects_Third_Party(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	room, _, _ := seedRoom(t, f)
	gate := NewGate(f.agreements, f.gigs)

	// When a stranger asks for access
	_, err := gate.Authorize(room, uuid.New())

	// Then the room stays closed to them
	req.ErrorIs(err, errors.ErrForbidden)
}

func TestGate_Rejects_Non_Accepted_Agreement(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	for _, status := range []domain.Status{domain.StatusPending, domain.StatusRejected} {
		client := uuid.New()
		agreement := domain.Agreement{
			ID:        uuid.New(),
			GigID:     uuid.New(),
			ClientID:  client,
			Status:    status,
			CreatedAt: time.Now().UTC(),
		}
		req.NoError(f.agreements.SaveAgreement(agreement))

		// Even the client is locked out until the agreement is accepted
		gate := NewGate(f.agreements, f.gigs)
		_, err := gate.Authorize(agreement.Room(), client)
		req.ErrorIs(err, errors.ErrAgreementNotOpen)
	}
}

func TestGate_Unknown_Agreement(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	gate := NewGate(f.agreements, f.gigs)

	_, err := gate.Authorize(domain.RoomID(uuid.New()), uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}
