package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"dealercrm/internal/models"
	"dealercrm/internal/storage"
)

var (
	ErrInvalidEnvelope = errors.New("invalid backup envelope")
	ErrUnknownKey      = errors.New("not a backed up storage key")
)

const DefaultQuotaBytes = 5 * 1024 * 1024

// Service is the snapshot store: it moves the whitelisted keys of a
// key-value store in and out of backup envelopes. Restores and exports on
// overlapping keys must not run concurrently.
type Service struct {
	kv       storage.KV
	quota    int
	now      func() time.Time
	logger   logrus.FieldLogger
	validate *validator.Validate
}

type Option func(*Service)

func WithQuota(bytes int) Option {
	return func(s *Service) { s.quota = bytes }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(kv storage.KV, opts ...Option) *Service {
	s := &Service{
		kv:       kv,
		quota:    DefaultQuotaBytes,
		now:      time.Now,
		logger:   logrus.StandardLogger(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportAll snapshots every whitelisted key that is present.
func (s *Service) ExportAll(ctx context.Context) (*models.Envelope, error) {
	env := s.newEnvelope()
	for _, k := range StorageKeys {
		raw, ok, err := s.read(ctx, k.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			env.Data[k.Name] = raw
		}
	}
	s.logger.Infof("Exported %d of %d storage keys", len(env.Data), len(StorageKeys))
	return env, nil
}

// ExportOne snapshots a single key. It returns nil without an error when
// the key holds nothing.
func (s *Service) ExportOne(ctx context.Context, key string) (*models.Envelope, error) {
	if !IsStorageKey(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	raw, ok, err := s.read(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	env := s.newEnvelope()
	env.Data[key] = raw
	return env, nil
}

func (s *Service) newEnvelope() *models.Envelope {
	return &models.Envelope{
		Version:   models.EnvelopeVersion,
		CreatedAt: s.now().UTC(),
		Data:      make(map[string]json.RawMessage),
	}
}

// read returns the stored value as JSON. Values that are not valid JSON
// are exported as JSON strings.
func (s *Service) read(ctx context.Context, key string) (json.RawMessage, bool, error) {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	if json.Valid([]byte(v)) {
		return json.RawMessage(v), true, nil
	}
	s.logger.Warnf("Storage key %s does not hold JSON, exporting it as a string", key)
	quoted, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return quoted, true, nil
}

type RestoreResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Restored []string `json:"restored,omitempty"`
	Ignored  []string `json:"ignored,omitempty"`
}

// Restore overwrites every whitelisted key present in env. All values are
// staged and validated before the first write; stores implementing
// storage.BatchWriter apply them as one unit, others key by key with no
// rollback if a later write fails. Keys outside the whitelist are ignored.
func (s *Service) Restore(ctx context.Context, env *models.Envelope) (RestoreResult, error) {
	fail := func(err error) (RestoreResult, error) {
		return RestoreResult{Success: false, Message: err.Error()}, err
	}

	if env == nil {
		return fail(fmt.Errorf("%w: empty envelope", ErrInvalidEnvelope))
	}
	if err := s.validate.Struct(env); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidEnvelope, err))
	}

	staged := make(map[string]string, len(env.Data))
	var ignored []string
	for key, raw := range env.Data {
		if !IsStorageKey(key) {
			ignored = append(ignored, key)
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return fail(fmt.Errorf("%w: value of %s is not JSON: %v", ErrInvalidEnvelope, key, err))
		}
		staged[key] = buf.String()
	}

	restored := make([]string, 0, len(staged))
	for key := range staged {
		restored = append(restored, key)
	}
	sort.Strings(restored)
	sort.Strings(ignored)

	if batch, ok := s.kv.(storage.BatchWriter); ok {
		if err := batch.SetMany(ctx, staged); err != nil {
			return fail(fmt.Errorf("restore failed: %w", err))
		}
	} else {
		for _, key := range restored {
			if err := s.kv.Set(ctx, key, staged[key]); err != nil {
				return fail(fmt.Errorf("restore failed at %s: %w", key, err))
			}
		}
	}

	for _, key := range ignored {
		s.logger.Warnf("Ignoring unknown storage key %s in backup", key)
	}
	s.logger.Infof("Restored %d storage keys from backup version %s", len(restored), env.Version)

	return RestoreResult{
		Success:  true,
		Message:  fmt.Sprintf("restored %d keys", len(restored)),
		Restored: restored,
		Ignored:  ignored,
	}, nil
}

// ClearAll removes every whitelisted key.
func (s *Service) ClearAll(ctx context.Context) error {
	for _, k := range StorageKeys {
		if err := s.kv.Remove(ctx, k.Name); err != nil {
			return fmt.Errorf("failed to remove %s: %w", k.Name, err)
		}
	}
	s.logger.Infof("Cleared %d storage keys", len(StorageKeys))
	return nil
}

type Usage struct {
	Used       int     `json:"used"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// UsageEstimate approximates storage cost as two bytes per UTF-16 code
// unit of every whitelisted key and value.
func (s *Service) UsageEstimate(ctx context.Context) (Usage, error) {
	used := 0
	for _, k := range StorageKeys {
		v, ok, err := s.kv.Get(ctx, k.Name)
		if err != nil {
			return Usage{}, fmt.Errorf("failed to read %s: %w", k.Name, err)
		}
		if ok {
			used += storedSize(k.Name) + storedSize(v)
		}
	}
	u := Usage{Used: used, Total: s.quota}
	if s.quota > 0 {
		u.Percentage = float64(used) / float64(s.quota) * 100
	}
	return u, nil
}

type KeyInfo struct {
	Key         string `json:"key" csv:"key"`
	DisplayName string `json:"displayName" csv:"display_name"`
	Exists      bool   `json:"exists" csv:"exists"`
	SizeBytes   int    `json:"sizeBytes" csv:"size_bytes"`
	ItemCount   *int   `json:"itemCount,omitempty" csv:"item_count,omitempty"`
}

// Inventory reports presence, size and entity count for each key.
func (s *Service) Inventory(ctx context.Context) ([]KeyInfo, error) {
	infos := make([]KeyInfo, 0, len(StorageKeys))
	for _, k := range StorageKeys {
		info := KeyInfo{Key: k.Name, DisplayName: k.DisplayName}
		v, ok, err := s.kv.Get(ctx, k.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", k.Name, err)
		}
		if ok {
			info.Exists = true
			info.SizeBytes = storedSize(v)
			info.ItemCount = itemCount(v, k.ItemPaths)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func itemCount(value string, paths []string) *int {
	if len(paths) == 0 || !gjson.Valid(value) {
		return nil
	}
	total, found := 0, false
	for _, p := range paths {
		if n, ok := arrayLen(gjson.Get(value, p)); ok {
			total += n
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}

func storedSize(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n * 2
}

// BackupToFile exports all keys, or only key when it is not empty, into a
// timestamped JSON file under outputDir. It returns "" when key holds
// nothing.
func (s *Service) BackupToFile(ctx context.Context, outputDir, key string) (string, error) {
	var env *models.Envelope
	var err error
	if key == "" {
		env, err = s.ExportAll(ctx)
	} else {
		env, err = s.ExportOne(ctx, key)
	}
	if err != nil || env == nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := env.CreatedAt.Local().Format("20060102_150405")
	filename := fmt.Sprintf("backup_%s.json", timestamp)
	if key != "" {
		filename = fmt.Sprintf("backup_%s_%s.json", key, timestamp)
	}
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	if err := WriteEnvelope(file, env); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// RestoreFromFile validates and restores a backup file.
func (s *Service) RestoreFromFile(ctx context.Context, path string) (RestoreResult, error) {
	if err := ValidateBackupFile(path); err != nil {
		return RestoreResult{Message: err.Error()}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return RestoreResult{Message: err.Error()}, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	env, err := ReadEnvelope(file)
	if err != nil {
		return RestoreResult{Message: err.Error()}, err
	}
	return s.Restore(ctx, env)
}

func ValidateBackupFile(filename string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("cannot open backup file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("backup file is empty")
	}
	if ext := filepath.Ext(filename); ext != ".json" {
		return fmt.Errorf("expected JSON file but got %s", ext)
	}
	return nil
}

func WriteEnvelope(w io.Writer, env *models.Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// ReadEnvelope decodes an envelope. A missing version or data member is
// reported as ErrInvalidEnvelope.
func ReadEnvelope(r io.Reader) (*models.Envelope, error) {
	var env models.Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Version == "" || env.Data == nil {
		return nil, fmt.Errorf("%w: version and data are required", ErrInvalidEnvelope)
	}
	return &env, nil
}
