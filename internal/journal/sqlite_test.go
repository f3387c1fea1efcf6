package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/listing-watch/internal/model"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_RecordDetection(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	det := model.NewDetection("binance", model.NewAnnouncement("Binance Will List Foo (FOO) and Bar (BAR)", "https://x/1"), []string{"FOO", "BAR"})
	require.NoError(t, s.RecordDetection(ctx, det))
	require.NoError(t, s.RecordDetection(ctx, det), "repeated id is ignored")

	recs, err := s.Detections(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, det.ID.String(), recs[0].ID)
	assert.Equal(t, "binance", recs[0].Source)
	assert.Equal(t, "FOO,BAR", recs[0].Symbols)
}

func TestSQLite_DetectionsNewestFirst(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	older := model.NewDetection("kraken", model.NewAnnouncement("A", "/a"), nil)
	newer := model.NewDetection("kraken", model.NewAnnouncement("B", "/b"), nil)
	newer.DetectedAt = older.DetectedAt.Add(time.Second)
	require.NoError(t, s.RecordDetection(ctx, older))
	require.NoError(t, s.RecordDetection(ctx, newer))

	recs, err := s.Detections(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "B", recs[0].Title)
}

func TestSQLite_RecordOutcome(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.RecordOutcome(ctx, model.Outcome{Kind: model.OutcomeFailed, Symbol: "FOO", Reason: "not tradable"}))
	require.NoError(t, s.RecordOutcome(ctx, executed("FOO")))
	require.NoError(t, s.RecordOutcome(ctx, executed("BAR")))

	recs, err := s.Outcomes(ctx, "foo")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "failed", recs[0].Kind)
	assert.Equal(t, "not tradable", recs[0].Reason)
	assert.Empty(t, recs[0].OrderID)
	assert.Equal(t, "executed", recs[1].Kind)
	assert.Equal(t, "FOOUSDT", recs[1].Market)
	assert.Equal(t, "9.99", recs[1].QuoteSpent)

	all, err := s.Outcomes(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
