package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/autopricing/internal/model"
	"github.com/guarzo/autopricing/internal/testutil"
)

func TestWriteRead(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "backups"))
	at := time.Date(2024, 6, 3, 2, 10, 0, 0, time.UTC)

	factory := testutil.NewTestDataFactory(testutil.GetTestSeed())
	contexts := factory.GenerateContexts(5)
	recs := make([]model.Recommendation, len(contexts))
	for i, c := range contexts {
		recs[i] = model.Recommendation{
			Context:            c,
			Decision:           model.Decision{Strategy: "keep", Change: model.ChangeKeep, Price: c.Price, Path: model.Trace{"keep"}},
			LastChangedDaysAgo: i,
		}
	}
	recs[4].Decision = model.Decision{Strategy: "sell_power", Change: model.ChangeNotEnoughData, Price: model.Undefined, Path: model.Trace{"guard.missing"}}

	path, err := s.Write("run-1", at, recs)
	require.NoError(t, err)
	assert.Equal(t, "recommendations_20240603.jsonl.br", filepath.Base(path))

	records, err := Read(path)
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "run-1", records[0].RunID)
	assert.True(t, records[0].RunAt.Equal(at))
	got := records[2].Recommendation()
	assert.Equal(t, recs[2].Context.Style, got.Context.Style)
	assert.Equal(t, recs[2].Decision, got.Decision)
	assert.Equal(t, 2, got.LastChangedDaysAgo)

	assert.Nil(t, records[4].RecomPrice)
	assert.False(t, model.Defined(records[4].Recommendation().Decision.Price))
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNoBackup)

	for _, day := range []int{3, 10, 7} {
		_, err := s.Write("run", time.Date(2024, 6, day, 2, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recommendations_20240610.jsonl.br"), latest)
}

func TestLatest_MissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent"))
	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestRead_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(time.Now()))
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, _ = w.Write([]byte("{\"run_id\":\"r\"}\nnot json\n"))
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
