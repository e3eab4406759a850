// Package storage persists scheduled jobs and the latest case snapshots,
// either on the local filesystem for development or in a GCS bucket.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"

	"tribunal-notifier/pkg/notify"
)

const (
	jobPrefix  = "job-"
	casePrefix = "case-"
)

var errNotFound = errors.New("storage: object doesn't exist")

// Store handles job and snapshot persistence.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// New creates a storage handler. With a non-empty localPath the store works
// off the filesystem and never touches the client.
func New(client *storage.Client, bucket, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// IsNotFound checks if an error indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

// SaveJob persists a pending job.
func (s *Store) SaveJob(ctx context.Context, job *notify.ScheduledJob) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.write(ctx, jobPrefix+job.ID+".json", data)
}

// DeleteJob removes a persisted job. Deleting a job that is already gone is
// not an error; deletion is idempotent.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	err := s.delete(ctx, jobPrefix+id+".json")
	if err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// ListJobs loads every persisted pending job.
func (s *Store) ListJobs(ctx context.Context) ([]*notify.ScheduledJob, error) {
	keys, err := s.list(ctx, jobPrefix)
	if err != nil {
		return nil, err
	}

	var jobs []*notify.ScheduledJob
	for _, key := range keys {
		data, err := s.read(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to load job", "key", key, "error", err)
			continue
		}
		var job notify.ScheduledJob
		if err := json.Unmarshal(data, &job); err != nil {
			s.logger.Warn("Failed to unmarshal job", "key", key, "error", err)
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// SaveSnapshot records the latest snapshot seen for a case, so fired jobs can
// re-resolve against current case facts.
func (s *Store) SaveSnapshot(ctx context.Context, snap *notify.CaseSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.write(ctx, casePrefix+snap.CaseID+".json", data)
}

// Snapshot loads the latest recorded snapshot for a case.
func (s *Store) Snapshot(ctx context.Context, caseID string) (*notify.CaseSnapshot, error) {
	data, err := s.read(ctx, casePrefix+caseID+".json")
	if err != nil {
		return nil, err
	}
	var snap notify.CaseSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *Store) write(ctx context.Context, key string, data []byte) error {
	s.logger.Debug("Saving object", "key", key)

	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		return nil
	}

	err := retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying save operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	if s.localPath != "" {
		data, err := os.ReadFile(filepath.Join(s.localPath, key))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errNotFound
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
		return data, nil
	}

	var readData []byte
	err := retry.Do(
		func() error {
			r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
			if openErr != nil {
				if errors.Is(openErr, storage.ErrObjectNotExist) {
					return retry.Unrecoverable(errNotFound)
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					s.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			var readErr error
			readData, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying load operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("load after retries: %w", err)
	}
	return readData, nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	s.logger.Debug("Deleting object", "key", key)

	if s.localPath != "" {
		if err := os.Remove(filepath.Join(s.localPath, key)); err != nil {
			if os.IsNotExist(err) {
				return errNotFound
			}
			return fmt.Errorf("delete from local storage: %w", err)
		}
		return nil
	}

	err := retry.Do(
		func() error {
			if deleteErr := s.client.Bucket(s.bucket).Object(key).Delete(ctx); deleteErr != nil {
				if errors.Is(deleteErr, storage.ErrObjectNotExist) {
					return retry.Unrecoverable(errNotFound)
				}
				return fmt.Errorf("delete from storage: %w", deleteErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying delete operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return errNotFound
		}
		return fmt.Errorf("delete after retries: %w", err)
	}
	return nil
}

func (s *Store) list(ctx context.Context, prefix string) ([]string, error) {
	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}
		var keys []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			keys = append(keys, entry.Name())
		}
		return keys, nil
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}
