// Package gateway keeps the bounded list of remote backups: it stores
// envelopes with change detection and prunes everything but the newest.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dealercrm/internal/backup"
	"dealercrm/internal/models"
)

var (
	ErrMissingData = errors.New("backup data is required")
	ErrInvalidData = errors.New("backup data is not valid JSON")
	ErrNotFound    = errors.New("backup not found")
)

const DefaultRetention = 10

// Repository persists backup records. RunInTx runs fn with a context that
// carries one transaction; repository calls made with that context join it.
type Repository interface {
	List(ctx context.Context, limit int) ([]models.BackupRecord, error)
	// Latest returns nil when no record exists.
	Latest(ctx context.Context) (*models.BackupRecord, error)
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*models.BackupRecord, error)
	Insert(ctx context.Context, rec models.BackupRecord) error
	// Prune deletes every record outside the keep newest and reports how
	// many were removed.
	Prune(ctx context.Context, keep int) (int64, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type SaveRequest struct {
	Data       json.RawMessage
	DataHash   string
	SkipIfSame bool
}

type SaveResult struct {
	Skipped   bool
	ID        string
	SizeBytes int
	Hash      string
	Metadata  models.Metadata
}

type Gateway struct {
	repo      Repository
	retention int
	now       func() time.Time
	logger    logrus.FieldLogger

	// mu serialises the latest-hash check with the insert and prune that
	// follow it within this process.
	mu sync.Mutex
}

type Option func(*Gateway)

func WithRetention(n int) Option {
	return func(g *Gateway) { g.retention = n }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func New(repo Repository, opts ...Option) *Gateway {
	g := &Gateway{
		repo:      repo,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// List returns the retained records, newest first.
func (g *Gateway) List(ctx context.Context) ([]models.BackupRecord, error) {
	records, err := g.repo.List(ctx, g.retention)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return records, nil
}

func (g *Gateway) Get(ctx context.Context, id string) (*models.BackupRecord, error) {
	return g.repo.Get(ctx, id)
}

// Save stores req.Data unless SkipIfSame is set and the newest record
// already carries the same hash. The hash is taken from req.DataHash when
// given, otherwise computed over the data member of the canonical payload.
func (g *Gateway) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	trimmed := bytes.TrimSpace(req.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		recordSave("rejected")
		return SaveResult{}, ErrMissingData
	}
	payload, err := backup.Canonicalize(trimmed)
	if err != nil {
		recordSave("rejected")
		return SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	hash := req.DataHash
	if hash == "" {
		hash = backup.ContentHash(payload)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var res SaveResult
	err = g.repo.RunInTx(ctx, func(ctx context.Context) error {
		if req.SkipIfSame {
			latest, err := g.repo.Latest(ctx)
			if err != nil {
				return fmt.Errorf("failed to read latest backup: %w", err)
			}
			if latest != nil && latest.Hash == hash {
				res = SaveResult{Skipped: true, Hash: hash}
				return nil
			}
		}

		now := g.now().UTC()
		rec := models.BackupRecord{
			ID:        newID(now),
			CreatedAt: now,
			Payload:   payload,
			SizeBytes: len(payload),
			Hash:      hash,
			Metadata:  backup.ExtractMetadata(payload),
		}
		if err := g.repo.Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to insert backup: %w", err)
		}

		pruned, err := g.repo.Prune(ctx, g.retention)
		if err != nil {
			return fmt.Errorf("failed to prune backups: %w", err)
		}
		recordPrune(pruned)

		res = SaveResult{ID: rec.ID, SizeBytes: rec.SizeBytes, Hash: hash, Metadata: rec.Metadata}
		return nil
	})
	if err != nil {
		recordSave("failed")
		return SaveResult{}, err
	}

	if res.Skipped {
		recordSave("skipped")
		g.logger.WithField("hash", hash).Info("Backup unchanged, skipped")
	} else {
		recordSave("saved")
		g.logger.WithFields(logrus.Fields{"id": res.ID, "size": res.SizeBytes, "hash": hash}).Info("Backup saved")
	}
	return res, nil
}

func newID(now time.Time) string {
	return fmt.Sprintf("backup_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}
