//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain/chat"
	"chat-relay/errors"
)

type IMessageRepository interface {
	CreateMessage(message chat.Message) (chat.Message, error)
	FindMessage(id uuid.UUID) (chat.Message, error)
	UpdateMessage(message chat.Message) (chat.Message, error)
	ListPublic() ([]chat.Message, error)
	ListPrivateFor(identityID string) ([]chat.Message, error)
}

// MessageRepository persists messages in BadgerDB.
//
// Two keys per message:
//   - "msg:id:{uuid}" holds the record and serves point lookups for votes.
//   - "msg:ts:{timestamp_padded}:{uuid}" holds only the id and orders the
//     history scans. The 19-digit zero padding keeps lexicographic order
//     equal to chronological order; the UUID suffix disambiguates two
//     messages landing on the same nanosecond.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

func messageIDKey(id uuid.UUID) []byte {
	return []byte("msg:id:" + id.String())
}

func messageTimeKey(message chat.Message) []byte {
	return []byte(fmt.Sprintf("msg:ts:%019d:%s", message.CreatedAt.UnixNano(), message.ID))
}

// CreateMessage assigns the id and writes record plus time index in one
// transaction. The returned message is the persisted form.
func (m *MessageRepository) CreateMessage(message chat.Message) (chat.Message, error) {
	message.ID = uuid.New()
	if message.Votes == nil {
		message.Votes = make(map[string]chat.Verdict)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return chat.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageIDKey(message.ID), data); err != nil {
			return err
		}
		return txn.Set(messageTimeKey(message), []byte(message.ID.String()))
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

func (m *MessageRepository) FindMessage(id uuid.UUID) (chat.Message, error) {
	var message chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return chat.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return chat.Message{}, err
	}
	return message, nil
}

// UpdateMessage rewrites the record in place. Only the ledger and counts
// ever change after creation; the time index key stays untouched.
func (m *MessageRepository) UpdateMessage(message chat.Message) (chat.Message, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return chat.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(messageIDKey(message.ID)); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), data)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return chat.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// ListPublic returns all broadcast messages in chronological order.
func (m *MessageRepository) ListPublic() ([]chat.Message, error) {
	return m.list(func(msg chat.Message) bool {
		return msg.IsPublic()
	})
}

// ListPrivateFor returns the private messages addressed to one identity,
// in chronological order.
func (m *MessageRepository) ListPrivateFor(identityID string) ([]chat.Message, error) {
	return m.list(func(msg chat.Message) bool {
		return slices.Contains(msg.Recipients, identityID)
	})
}

func (m *MessageRepository) list(keep func(chat.Message) bool) ([]chat.Message, error) {
	var ids []uuid.UUID
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:ts:")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				id, err := uuid.Parse(string(val))
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(ids))
	for _, id := range ids {
		message, err := m.FindMessage(id)
		if goerrors.Is(err, errors.ErrMessageNotFound) {
			// Index entry without a record should not happen; skip and log
			// rather than failing the whole listing.
			m.log.Warn("dangling message index entry", "id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if keep(message) {
			messages = append(messages, message)
		}
	}
	return messages, nil
}
