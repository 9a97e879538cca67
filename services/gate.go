//go:generate go run go.uber.org/mock/mockgen -source=gate.go -destination=../mocks/mock_gate.go -package=mocks
package services

import (
	"fmt"

	"gigchat/domain"
	"gigchat/errors"
	"gigchat/repositories"

	"github.com/google/uuid"
)

type IGate interface {
	Authorize(room domain.RoomID, userID uuid.UUID) (domain.Agreement, error)
}

// Gate decides whether an identity may use the chat room of an agreement.
// The decision is taken once, at attach time for streams and per request
// for REST reads; a status change after attach does not close live rooms.
type Gate struct {
	agreements repositories.IAgreementLookup
	gigs       repositories.IGigRepository
}

func NewGate(agreements repositories.IAgreementLookup, gigs repositories.IGigRepository) *Gate {
	return &Gate{agreements: agreements, gigs: gigs}
}

// Authorize allows the agreement's client and the owner of the agreement's
// gig, and only while the agreement is accepted. The agreement is returned
// so callers don't fetch it twice.
func (g *Gate) Authorize(room domain.RoomID, userID uuid.UUID) (domain.Agreement, error) {
	agreement, err := g.agreements.GetAgreement(uuid.UUID(room))
	if err != nil {
		return domain.Agreement{}, err
	}

	if agreement.Status != domain.StatusAccepted {
		return domain.Agreement{}, errors.ErrAgreementNotOpen
	}

	if agreement.ClientID == userID {
		return agreement, nil
	}

	// The second party is the owner of the gig the agreement was made on.
	gig, err := g.gigs.GetGig(agreement.GigID)
	if err == nil && gig.OwnerID == userID {
		return agreement, nil
	}

	return domain.Agreement{}, fmt.Errorf("user %s on agreement %s: %w",
		userID, agreement.ID, errors.ErrForbidden)
}
