package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// ReportStore archives finished batch results in Badger so callers can fetch
// a report after the submitting request has returned.
type ReportStore struct {
	db        *badger.DB
	logger    *slog.Logger
	retention time.Duration
}

// OpenReportStore opens (or creates) the report archive at path.
// Reports expire after retention; zero keeps them forever.
func OpenReportStore(path string, logger *slog.Logger, retention time.Duration) (*ReportStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // A report is only acknowledged once it is on disk
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Report archive opened", "path", path)
	}

	return &ReportStore{db: db, logger: logger, retention: retention}, nil
}

// Close gracefully closes the database.
func (s *ReportStore) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing report archive")
	}
	return s.db.Close()
}

// Save stores a batch result and indexes it under its publisher.
func (s *ReportStore) Save(ctx context.Context, result *domain.BatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result.BatchID == "" {
		return errors.New("batch result has no ID")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal batch result: %w", err)
	}

	key := reportKey(result.BatchID)
	idx := publisherIndexKey(result.PublisherID, result.FinishedAt, result.BatchID)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(s.entry(key, data)); err != nil {
			return err
		}
		return txn.SetEntry(s.entry(idx, nil))
	})
}

func (s *ReportStore) entry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if s.retention > 0 {
		e = e.WithTTL(s.retention)
	}
	return e
}

// Get returns the stored result for batchID, or ErrNotFound.
func (s *ReportStore) Get(ctx context.Context, batchID string) (*domain.BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := reportKey(batchID)

	var result domain.BatchResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", batchID, err)
	}
	return &result, nil
}

// ListByPublisher returns up to limit reports for publisherID, newest first.
func (s *ReportStore) ListByPublisher(ctx context.Context, publisherID int64, limit int) ([]*domain.BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := publisherPrefix(publisherID)

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, batchIDFromIndexKey(it.Item().Key()))
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list batches for publisher %d: %w", publisherID, err)
	}

	results := make([]*domain.BatchResult, 0, len(ids))
	for _, batchID := range ids {
		r, err := s.Get(ctx, batchID)
		if errors.Is(err, ErrNotFound) {
			continue // expired between index scan and fetch
		}
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
