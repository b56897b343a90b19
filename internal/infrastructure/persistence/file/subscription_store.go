package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/internal/domain/service"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
)

// subscriptionStore persists one JSON record per subscription id under a
// root directory. Every read or write of a given path is serialized through
// the per-path lock registry so concurrent operations on the same id never
// observe a partially written file.
type subscriptionStore struct {
	root  string
	locks *pathLocks
	log   logger.Logger
}

// NewSubscriptionStore creates a file-backed SubscriptionStore rooted at root.
func NewSubscriptionStore(root string, log logger.Logger) service.SubscriptionStore {
	return &subscriptionStore{
		root:  root,
		locks: newPathLocks(),
		log:   log.WithComponent("subscription_store"),
	}
}

func (s *subscriptionStore) path(id string) string {
	return filepath.Join(s.root, id)
}

func (s *subscriptionStore) Save(ctx context.Context, entry models.SubscriptionEntry) error {
	id := entry.Subscription.ID
	if id == "" {
		return errors.ErrInvalidRequest.WithMessage("subscription entry has no id")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.ErrInternal.WithMessage("failed to serialize subscription %s", id).WithError(err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return errors.ErrInternal.WithMessage("failed to create subscription store root").WithError(err)
	}

	path := s.path(id)
	unlock := s.locks.acquire(path)
	defer unlock()

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ErrInternal.WithMessage("failed to write subscription %s", id).WithError(err)
	}
	return nil
}

func (s *subscriptionStore) Get(ctx context.Context, id string) (*models.SubscriptionEntry, error) {
	path := s.path(id)
	unlock := s.locks.acquire(path)
	data, err := os.ReadFile(path)
	unlock()

	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound.WithMessage("subscription %s not found", id)
		}
		return nil, errors.ErrInternal.WithMessage("failed to read subscription %s", id).WithError(err)
	}

	var entry models.SubscriptionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.ErrInternal.WithMessage("subscription %s is corrupted", id).WithError(err)
	}
	return &entry, nil
}

// GetAll lists every record under the root. Records that fail to read or
// deserialize are skipped: they may be mid-write by a concurrent save or
// corrupted, and one bad record must not abort the listing.
func (s *subscriptionStore) GetAll(ctx context.Context) ([]models.SubscriptionEntry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.ErrInternal.WithMessage("failed to list subscription store").WithError(err)
	}

	entries := make([]models.SubscriptionEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		entry, err := s.Get(ctx, de.Name())
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable subscription record", logger.Fields{
				"id":    de.Name(),
				"error": err.Error(),
			})
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *subscriptionStore) Delete(ctx context.Context, id string) error {
	path := s.path(id)
	unlock := s.locks.acquire(path)
	defer unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.ErrInternal.WithMessage("failed to delete subscription %s", id).WithError(err)
	}
	return nil
}
