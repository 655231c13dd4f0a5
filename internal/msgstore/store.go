package msgstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	msgPrefix = "msg/"
	seqKey    = "msg_seq"
)

// Entry is one persisted transactional message awaiting delivery.
type Entry struct {
	Seq           uint64          `json:"seq"`
	UniqueId      string          `json:"unique_id"`
	Action        string          `json:"action"`
	Payload       json.RawMessage `json:"payload"`
	TransactionId string          `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	Offline       bool            `json:"offline"`
}

// Store is a badger-backed FIFO of transactional messages. Keys are
// zero-padded sequence numbers so iteration order is send order.
type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory keeps everything in RAM, for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func msgKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", msgPrefix, seq))
}

// Append assigns the next sequence number and persists the entry.
func (s *Store) Append(entry *Entry) (uint64, error) {
	var seq uint64
	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := getIntTX(txn, seqKey)
		if err != nil {
			return err
		}
		seq = uint64(current) + 1
		if err := txn.Set([]byte(seqKey), []byte(strconv.FormatUint(seq, 10))); err != nil {
			return err
		}
		entry.Seq = seq
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return txn.Set(msgKey(seq), data)
	})
	return seq, err
}

// Entries returns all persisted messages in sequence order.
func (s *Store) Entries() ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(msgPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	return entries, err
}

func (s *Store) Delete(seq uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(msgKey(seq))
	})
}

func (s *Store) Update(entry *Entry) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return txn.Set(msgKey(entry.Seq), data)
	})
}

// GetValue reads an arbitrary state key; empty string when absent.
func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		val, err := getValueTX(txn, key)
		if err != nil {
			return err
		}
		value = val
		return nil
	})
	return value, err
}

func (s *Store) SetValue(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

func getValueTX(txn *badger.Txn, key string) (string, error) {
	val, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	v, err := val.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func getIntTX(txn *badger.Txn, key string) (int, error) {
	v, err := getValueTX(txn, key)
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
