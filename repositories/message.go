//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gigchat/domain"
	"gigchat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type IMessageRepository interface {
	Append(room domain.RoomID, sender uuid.UUID, content string) (domain.Message, error)
	Page(room domain.RoomID, page, limit int, anchor string) ([]domain.Message, string, error)
	GetMessage(messageID uuid.UUID) (domain.Message, error)
	MarkRead(messageID uuid.UUID) (domain.Message, error)
	LatestByRoom(rooms []domain.RoomID) (map[domain.RoomID]domain.Message, error)
	CountUnread(rooms []domain.RoomID, reader uuid.UUID) (map[domain.RoomID]int, error)
}

// MessageRepository persists messages in BadgerDB.
//
// The primary key is "msg:{room}:{timestamp_padded}:{uuid}":
//  1. The 19-digit zero padded nanosecond timestamp makes lexicographic
//     order equal chronological order within a room prefix.
//  2. The UUID suffix disambiguates two messages stored at the same
//     nanosecond, so no write is ever lost.
//
// A secondary key "msgid:{uuid}" points at the primary key so the read
// flag can be flipped without knowing the room or timestamp.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	mu        sync.Mutex
	roomLocks map[domain.RoomID]*sync.Mutex
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		db:        db,
		log:       log,
		roomLocks: make(map[domain.RoomID]*sync.Mutex),
	}
}

type storedMessage struct {
	ID       string `json:"id"`
	Room     string `json:"room"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	Read     bool   `json:"read"`
	At       int64  `json:"at"` // unix nanoseconds, UTC
}

// Append assigns an identifier and a timestamp to the message and stores it
// durably. Appends to the same room are serialized so that timestamps are
// monotonically non-decreasing per room; distinct rooms do not contend.
func (m *MessageRepository) Append(room domain.RoomID, sender uuid.UUID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}

	lock := m.roomLock(room)
	lock.Lock()
	defer lock.Unlock()

	at := time.Now().UTC()
	if last, ok, err := m.lastTimestamp(room); err != nil {
		return domain.Message{}, err
	} else if ok && at.Before(last) {
		// Clock went backwards relative to the newest stored message.
		at = last
	}

	message := domain.Message{
		ID:        uuid.New(),
		Room:      room,
		SenderID:  sender,
		Content:   content,
		Read:      false,
		CreatedAt: at,
	}

	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}

	primary := messageKey(room, at, message.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), primary)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Page returns up to limit messages of a room, newest first. Page numbers
// start at 1; limit defaults to DefaultPageSize and is clamped to
// MaxPageSize, matching the history endpoint contract.
//
// The anchor pins a pagination run to the key that was the room's newest
// when the run started. An empty anchor opens a new run and the returned
// anchor must be passed back for the following pages; messages appended
// mid-run land above the anchor and cannot shift later pages, so no page
// ever re-returns a message an earlier page of the same run already held.
func (m *MessageRepository) Page(room domain.RoomID, page, limit int, anchor string) ([]domain.Message, string, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	skip := (page - 1) * limit

	runAnchor := anchor
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		if anchor == "" {
			// Seek past the newest possible key of the room, then walk
			// backwards. The newest key becomes the run's anchor.
			it.Seek(seekEnd(prefix))
			if it.ValidForPrefix(prefix) {
				runAnchor = string(it.Item().Key()[len(prefix):])
			}
		} else {
			it.Seek(anchorKey(prefix, anchor))
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if skip > 0 {
				skip--
				continue
			}
			if len(messages) == limit {
				break
			}
			var stored storedMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &stored)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(stored)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return messages, runAnchor, nil
}

// GetMessage resolves a message by identifier through the secondary index.
func (m *MessageRepository) GetMessage(messageID uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(messageID))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("message %s: %w", messageID, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}

		var primary []byte
		if err := item.Value(func(v []byte) error {
			primary = append([]byte(nil), v...)
			return nil
		}); err != nil {
			return err
		}

		record, err := txn.Get(primary)
		if err != nil {
			return err
		}
		var stored storedMessage
		if err := record.Value(func(v []byte) error {
			return json.Unmarshal(v, &stored)
		}); err != nil {
			return err
		}
		message, err = toMessage(stored)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// MarkRead flips the read flag of a message to true and returns the updated
// message. Marking an already-read message is a no-op that succeeds.
func (m *MessageRepository) MarkRead(messageID uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(messageID))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("message %s: %w", messageID, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}

		var primary []byte
		if err := item.Value(func(v []byte) error {
			primary = append([]byte(nil), v...)
			return nil
		}); err != nil {
			return err
		}

		record, err := txn.Get(primary)
		if err != nil {
			return err
		}

		var stored storedMessage
		if err := record.Value(func(v []byte) error {
			return json.Unmarshal(v, &stored)
		}); err != nil {
			return err
		}

		if !stored.Read {
			stored.Read = true
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := txn.Set(primary, data); err != nil {
				return err
			}
		}

		message, err = toMessage(stored)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// LatestByRoom returns the newest message of each given room. Rooms with
// no history are absent from the result.
func (m *MessageRepository) LatestByRoom(rooms []domain.RoomID) (map[domain.RoomID]domain.Message, error) {
	latest := make(map[domain.RoomID]domain.Message)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for _, room := range rooms {
			prefix := roomPrefix(room)
			it.Seek(seekEnd(prefix))
			if !it.ValidForPrefix(prefix) {
				continue
			}
			var stored storedMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &stored)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(stored)
			if err != nil {
				return err
			}
			latest[room] = message
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// CountUnread counts, per room, the messages not sent by reader that are
// still unread.
func (m *MessageRepository) CountUnread(rooms []domain.RoomID, reader uuid.UUID) (map[domain.RoomID]int, error) {
	counts := make(map[domain.RoomID]int)
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for _, room := range rooms {
			prefix := roomPrefix(room)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var stored storedMessage
				err := it.Item().Value(func(value []byte) error {
					return json.Unmarshal(value, &stored)
				})
				if err != nil {
					return err
				}
				if !stored.Read && stored.SenderID != reader.String() {
					counts[room]++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// lastTimestamp reads the creation time of the newest stored message of a
// room, used to keep per-room timestamps monotonic across restarts.
func (m *MessageRepository) lastTimestamp(room domain.RoomID) (time.Time, bool, error) {
	var last time.Time
	var found bool
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(seekEnd(prefix))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		key := it.Item().Key()
		nanos, err := timestampFromKey(key, prefix)
		if err != nil {
			return err
		}
		last = time.Unix(0, nanos).UTC()
		found = true
		return nil
	})
	return last, found, err
}

func (m *MessageRepository) roomLock(room domain.RoomID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.roomLocks[room]
	if !ok {
		lock = &sync.Mutex{}
		m.roomLocks[room] = lock
	}
	return lock
}

func roomPrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

func messageKey(room domain.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", room, at.UnixNano(), id))
}

func indexKey(id uuid.UUID) []byte {
	return []byte("msgid:" + id.String())
}

// seekEnd positions a reverse iterator past every key of the prefix.
func seekEnd(prefix []byte) []byte {
	return append(append([]byte(nil), prefix...), 0xFF)
}

// anchorKey rebuilds the full key of a run's anchor from its suffix.
func anchorKey(prefix []byte, anchor string) []byte {
	return append(append([]byte(nil), prefix...), anchor...)
}

func timestampFromKey(key, prefix []byte) (int64, error) {
	rest := bytes.TrimPrefix(key, prefix)
	parts := bytes.SplitN(rest, []byte(":"), 2)
	var nanos int64
	if _, err := fmt.Sscanf(string(parts[0]), "%d", &nanos); err != nil {
		return 0, fmt.Errorf("malformed message key %q: %w", key, err)
	}
	return nanos, nil
}

func fromMessage(message domain.Message) storedMessage {
	return storedMessage{
		ID:       message.ID.String(),
		Room:     message.Room.String(),
		SenderID: message.SenderID.String(),
		Content:  message.Content,
		Read:     message.Read,
		At:       message.CreatedAt.UnixNano(),
	}
}

func toMessage(stored storedMessage) (domain.Message, error) {
	id, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	room, err := domain.ParseRoomID(stored.Room)
	if err != nil {
		return domain.Message{}, err
	}
	sender, err := uuid.Parse(stored.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        id,
		Room:      room,
		SenderID:  sender,
		Content:   stored.Content,
		Read:      stored.Read,
		CreatedAt: time.Unix(0, stored.At).UTC(),
	}, nil
}
