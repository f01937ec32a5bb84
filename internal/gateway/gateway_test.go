package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealercrm/internal/backup"
	"dealercrm/internal/models"
)

func ticker(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func newTestGateway(repo Repository) *Gateway {
	logger, _ := test.NewNullLogger()
	return New(repo, WithClock(ticker(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))), WithLogger(logger))
}

func envelope(customers int) json.RawMessage {
	list := make([]map[string]string, customers)
	for i := range list {
		list[i] = map[string]string{"id": fmt.Sprintf("c%d", i)}
	}
	raw, _ := json.Marshal(map[string]any{
		"version":   "1.0",
		"createdAt": "2025-04-01T00:00:00Z",
		"data": map[string]any{
			"customer-store": map[string]any{"state": map[string]any{"customers": list}},
		},
	})
	return raw
}

func TestSaveSkipsUnchangedData(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	g := newTestGateway(repo)

	first, err := g.Save(ctx, SaveRequest{Data: envelope(2), SkipIfSame: true})
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.NotEmpty(t, first.ID)
	require.NotNil(t, first.Metadata.Customers)
	assert.Equal(t, 2, *first.Metadata.Customers)

	second, err := g.Save(ctx, SaveRequest{Data: envelope(2), SkipIfSame: true})
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Hash, second.Hash)

	records, err := g.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSaveWithoutSkipAlwaysInserts(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(NewMemoryRepository())

	for i := 0; i < 3; i++ {
		res, err := g.Save(ctx, SaveRequest{Data: envelope(1)})
		require.NoError(t, err)
		assert.False(t, res.Skipped)
	}

	records, err := g.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSaveHashIgnoresKeyOrderAndWhitespace(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(NewMemoryRepository())

	_, err := g.Save(ctx, SaveRequest{Data: json.RawMessage(`{"version":"1.0","data":{"a":1,"b":[1,2]}}`)})
	require.NoError(t, err)

	res, err := g.Save(ctx, SaveRequest{
		Data:       json.RawMessage("{\n  \"data\": {\"b\": [1, 2], \"a\": 1},\n  \"version\": \"1.0\"\n}"),
		SkipIfSame: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestSaveUsesPrecomputedHash(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	g := newTestGateway(repo)

	res, err := g.Save(ctx, SaveRequest{Data: envelope(1), DataHash: "client-hash"})
	require.NoError(t, err)
	assert.Equal(t, "client-hash", res.Hash)

	res, err = g.Save(ctx, SaveRequest{Data: envelope(5), DataHash: "client-hash", SkipIfSame: true})
	require.NoError(t, err)
	assert.True(t, res.Skipped, "the supplied hash is trusted as is")

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	canonical, err := backup.Canonicalize(envelope(1))
	require.NoError(t, err)
	assert.Equal(t, canonical, latest.Payload)
	assert.Equal(t, len(canonical), latest.SizeBytes)
}

func TestRetentionKeepsNewestTen(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(NewMemoryRepository())

	var ids []string
	for i := 0; i < 13; i++ {
		res, err := g.Save(ctx, SaveRequest{Data: envelope(i), SkipIfSame: true})
		require.NoError(t, err)
		require.False(t, res.Skipped)
		ids = append(ids, res.ID)
	}

	records, err := g.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, DefaultRetention)
	for i, rec := range records {
		assert.Equal(t, ids[len(ids)-1-i], rec.ID, "records are newest first")
	}
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].CreatedAt.After(records[i].CreatedAt))
	}
}

func TestSaveRejectsMissingOrInvalidData(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(NewMemoryRepository())

	_, err := g.Save(ctx, SaveRequest{})
	assert.ErrorIs(t, err, ErrMissingData)

	_, err = g.Save(ctx, SaveRequest{Data: json.RawMessage("null")})
	assert.ErrorIs(t, err, ErrMissingData)

	_, err = g.Save(ctx, SaveRequest{Data: json.RawMessage("{oops")})
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(NewMemoryRepository())

	res, err := g.Save(ctx, SaveRequest{Data: envelope(1)})
	require.NoError(t, err)

	rec, err := g.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Hash, rec.Hash)

	_, err = g.Get(ctx, "backup_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

type brokenRepository struct {
	*MemoryRepository
}

func (brokenRepository) Insert(context.Context, models.BackupRecord) error {
	return errors.New("disk full")
}

func TestSaveReportsStorageFailure(t *testing.T) {
	g := newTestGateway(brokenRepository{NewMemoryRepository()})

	_, err := g.Save(context.Background(), SaveRequest{Data: envelope(1)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingData)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSaveMetrics(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(NewMemoryRepository())

	before := counterValue(t, "dealercrm_backup_saves_total", "skipped")
	_, err := g.Save(ctx, SaveRequest{Data: envelope(1), SkipIfSame: true})
	require.NoError(t, err)
	_, err = g.Save(ctx, SaveRequest{Data: envelope(1), SkipIfSame: true})
	require.NoError(t, err)

	assert.Equal(t, before+1, counterValue(t, "dealercrm_backup_saves_total", "skipped"))
}

func counterValue(t *testing.T, name, result string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return counterFor(mf.GetMetric(), result)
		}
	}
	return 0
}

func counterFor(metrics []*dto.Metric, result string) float64 {
	for _, m := range metrics {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "result" && lp.GetValue() == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
