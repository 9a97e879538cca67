package transport

import (
	"context"
	"testing"

	"gigchat/domain"
	"gigchat/domain/event"
	"gigchat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSink_Rejects_When_Full_Instead_Of_Blocking(t *testing.T) {
	req := require.New(t)
	sink := NewSink(2)
	ctx := context.Background()
	room := domain.RoomID(uuid.New())

	// Given a sink filled to capacity
	req.NoError(sink.Consume(ctx, event.Typing{Room: room, UserID: uuid.New()}))
	req.NoError(sink.Consume(ctx, event.Typing{Room: room, UserID: uuid.New()}))

	// When one more event arrives
	err := sink.Consume(ctx, event.Typing{Room: room, UserID: uuid.New()})

	// Then the sink reports the slow consumer without blocking
	req.ErrorIs(err, errors.ErrSlowConsumer)

	// And draining one slot makes room again
	<-sink.Events()
	req.NoError(sink.Consume(ctx, event.Typing{Room: room, UserID: uuid.New()}))
}

func TestSink_Translates_Domain_Events_To_Frames(t *testing.T) {
	req := require.New(t)
	sink := NewSink(8)
	ctx := context.Background()
	room := domain.RoomID(uuid.New())
	userID := uuid.New()

	req.NoError(sink.Consume(ctx, event.Presence{Room: room, UserID: userID, Online: true}))

	frame := <-sink.Events()
	req.Equal(ServerPresence, frame.Type)
	req.Equal(userID.String(), frame.UserID)
	req.NotNil(frame.Online)
	req.True(*frame.Online)
}

func TestSink_Error_Frames_Are_Best_Effort(t *testing.T) {
	req := require.New(t)
	sink := NewSink(1)

	// The first error is queued, the second silently dropped
	sink.Error("first")
	sink.Error("second")

	frame := <-sink.Events()
	req.Equal(ServerError, frame.Type)
	req.Equal("first", frame.Message)
	select {
	case extra := <-sink.Events():
		req.Fail("unexpected frame", "%+v", extra)
	default:
	}
}
