package repository

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/reloop-app/sync-engine/internal/core/domain"
)

const localLoopPrefix = "loop:"

// LocalLoop is the client-local variant of a loop: the definition plus its
// task set and completion history in one record, suitable for a device that
// works fully offline.
type LocalLoop struct {
	Loop    *domain.Loop               `json:"loop"`
	Tasks   []*domain.Task             `json:"tasks"`
	History []*domain.CompletionRecord `json:"history"`
}

// localLoopRecord is the stored shape. Dates round-trip as ISO-8601 strings;
// everything else is carried verbatim.
type localLoopRecord struct {
	Loop    json.RawMessage `json:"loop"`
	Tasks   json.RawMessage `json:"tasks"`
	History []struct {
		LoopID    string `json:"loop_id"`
		Date      string `json:"date"`
		Completed int    `json:"completed"`
		Total     int    `json:"total"`
	} `json:"history"`
}

// LocalLoopStore is a durable embedded key-value store for client-local
// loops. It is an explicit repository object constructed once per process
// and passed by reference; there is no module-level singleton.
type LocalLoopStore struct {
	db *badger.DB
}

// OpenLocalLoopStore opens (or creates) the store at path. An empty path
// opens an in-memory store, which tests use.
func OpenLocalLoopStore(path string) (*LocalLoopStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open local loop store: %w", err)
	}

	return &LocalLoopStore{db: db}, nil
}

func (s *LocalLoopStore) Close() error {
	return s.db.Close()
}

func localKey(id string) []byte {
	return []byte(localLoopPrefix + id)
}

// Save persists one local loop, serializing every date as ISO-8601.
func (s *LocalLoopStore) Save(entry *LocalLoop) error {
	if entry == nil || entry.Loop == nil || entry.Loop.ID == "" {
		return fmt.Errorf("local loop store: record has no id")
	}

	data, err := encodeLocalLoop(entry)
	if err != nil {
		return fmt.Errorf("local loop store: encode failed: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(localKey(entry.Loop.ID), data)
	})
}

// SaveAll persists the whole collection.
func (s *LocalLoopStore) SaveAll(entries []*LocalLoop) error {
	for _, entry := range entries {
		if err := s.Save(entry); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll reads every stored loop. A record that fails to parse is dropped
// with a log line; the rest of the collection loads normally.
func (s *LocalLoopStore) LoadAll() ([]*LocalLoop, error) {
	var entries []*LocalLoop

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(localLoopPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				entry, decErr := decodeLocalLoop(val)
				if decErr != nil {
					log.Printf("local loop store: dropping unparseable record %s: %v", item.Key(), decErr)
					return nil
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local loop store: load failed: %w", err)
	}

	return entries, nil
}

// FindByID reads a single loop; nil without error when absent or
// unparseable.
func (s *LocalLoopStore) FindByID(id string) (*LocalLoop, error) {
	var entry *LocalLoop

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(localKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			decoded, decErr := decodeLocalLoop(val)
			if decErr != nil {
				log.Printf("local loop store: dropping unparseable record %s: %v", id, decErr)
				return nil
			}
			entry = decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("local loop store: find failed: %w", err)
	}

	return entry, nil
}

func (s *LocalLoopStore) DeleteByID(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(localKey(id))
	})
	if err != nil {
		return fmt.Errorf("local loop store: delete failed: %w", err)
	}
	return nil
}

func encodeLocalLoop(entry *LocalLoop) ([]byte, error) {
	history := make([]map[string]interface{}, 0, len(entry.History))
	for _, rec := range entry.History {
		history = append(history, map[string]interface{}{
			"loop_id":   rec.LoopID,
			"date":      rec.Date.UTC().Format(time.RFC3339),
			"completed": rec.Completed,
			"total":     rec.Total,
		})
	}

	return json.Marshal(map[string]interface{}{
		"loop":    entry.Loop,
		"tasks":   entry.Tasks,
		"history": history,
	})
}

func decodeLocalLoop(data []byte) (*LocalLoop, error) {
	var rec localLoopRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	var loop domain.Loop
	if err := json.Unmarshal(rec.Loop, &loop); err != nil {
		return nil, err
	}
	if strings.TrimSpace(loop.ID) == "" {
		return nil, fmt.Errorf("record missing loop id")
	}

	var tasks []*domain.Task
	if len(rec.Tasks) > 0 {
		if err := json.Unmarshal(rec.Tasks, &tasks); err != nil {
			return nil, err
		}
	}

	history := make([]*domain.CompletionRecord, 0, len(rec.History))
	for _, h := range rec.History {
		date, err := time.Parse(time.RFC3339, h.Date)
		if err != nil {
			return nil, fmt.Errorf("bad history date %q: %w", h.Date, err)
		}
		history = append(history, &domain.CompletionRecord{
			LoopID:    h.LoopID,
			Date:      domain.DayOf(date),
			Completed: h.Completed,
			Total:     h.Total,
		})
	}

	return &LocalLoop{Loop: &loop, Tasks: tasks, History: history}, nil
}
