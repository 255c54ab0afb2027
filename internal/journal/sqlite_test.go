package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/gpuglow/internal/model"
)

func testJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	j, err := NewSQLiteJournal(log, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, status := range []string{model.StatusOK, model.StatusSampleFailed, model.StatusApplyFailed} {
		tick := model.NewTick(0, i*10, model.NewRGB(uint8(i), 0, 139), status, "")
		tick.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, j.Record(ctx, tick))
	}

	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	recent, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, model.StatusApplyFailed, recent[0].Status)
	assert.Equal(t, 20, recent[0].Utilization)
	assert.Equal(t, model.NewRGB(2, 0, 139), recent[0].Color)
	assert.Equal(t, model.StatusSampleFailed, recent[1].Status)
}

func TestCleanup(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	old := model.NewTick(0, 5, model.NewRGB(0, 0, 139), model.StatusOK, "")
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, j.Record(ctx, old))

	fresh := model.NewTick(0, 95, model.NewRGB(139, 0, 0), model.StatusOK, "")
	require.NoError(t, j.Record(ctx, fresh))

	require.NoError(t, j.Cleanup(ctx, 24*time.Hour))

	count, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	recent, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, fresh.ID, recent[0].ID)
}
