// Package search maintains a full-text index over persisted messages and
// answers history search queries scoped to one room.
package search

import (
	"context"
	"strconv"
	"time"

	"gigchat/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

// Index wraps a bluge writer. Messages are indexed once, right after they
// have been durably stored; the read flag is not indexed, only content is
// searchable.
type Index struct {
	writer *bluge.Writer
}

// Open creates or reopens an on-disk index at path.
func Open(path string) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer}, nil
}

// OpenInMemory backs the index with memory only. Used by tests.
func OpenInMemory() (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Add indexes one message. Indexing the same message twice replaces the
// previous document, so replays are harmless.
func (i *Index) Add(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField("room", message.Room.String())).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("sender_id", message.SenderID.String()).StoreValue()).
		AddField(bluge.NewNumericField("at", float64(message.CreatedAt.UnixNano()))).
		AddField(bluge.NewStoredOnlyField("at_raw", []byte(strconv.FormatInt(message.CreatedAt.UnixNano(), 10))))

	return i.writer.Update(doc.ID(), doc)
}

// Hit is one search result. Read state is not tracked by the index; callers
// needing it go back to the store.
type Hit struct {
	MessageID uuid.UUID
	Room      domain.RoomID
	SenderID  uuid.UUID
	Content   string
	CreatedAt time.Time
}

// Search returns up to limit messages of the room matching the query,
// newest first.
func (i *Index) Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(room.String()).SetField("room")).
		AddMust(bluge.NewMatchQuery(query).SetField("content"))

	request := bluge.NewTopNSearch(limit, q).SortBy([]string{"-at"})

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		hit := Hit{Room: room}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, err := uuid.Parse(string(value)); err == nil {
					hit.MessageID = id
				}
			case "sender_id":
				if id, err := uuid.Parse(string(value)); err == nil {
					hit.SenderID = id
				}
			case "content":
				hit.Content = string(value)
			case "at_raw":
				if nanos, err := strconv.ParseInt(string(value), 10, 64); err == nil {
					hit.CreatedAt = time.Unix(0, nanos).UTC()
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
