package tax

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolcompare/internal/core"
	"schoolcompare/internal/log"
)

const overrideTable = `
reference_home_value: 600000
districts:
  - id: "3904676"
    signal: city
    default: {low: %d, high: %d, representative: %d, label: override}
`

func writeTable(t *testing.T, path string, low, high, rep int) {
	t.Helper()
	body := []byte(fmt.Sprintf(overrideTable, low, high, rep))
	require.NoError(t, os.WriteFile(path, body, 0o644))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buckets.yaml")
	writeTable(t, path, 1000, 2000, 1500)

	tbl, err := LoadTableFile(path)
	require.NoError(t, err)
	est := NewEstimator(tbl)

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
	w, err := NewWatcher(est, path, logger)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeTable(t, path, 3000, 4000, 3500)

	require.Eventually(t, func() bool {
		b, err := est.Estimate("3904676", "")
		return err == nil && b.Representative == core.Dollars(3500)
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherKeepsTableOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buckets.yaml")
	writeTable(t, path, 1000, 2000, 1500)

	tbl, err := LoadTableFile(path)
	require.NoError(t, err)
	est := NewEstimator(tbl)

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
	w, err := NewWatcher(est, path, logger)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("districts: ["), 0o644))
	assert.Error(t, w.Reload())

	b, err := est.Estimate("3904676", "")
	require.NoError(t, err)
	assert.Equal(t, core.Dollars(1500), b.Representative)

	ok, failed := w.Reloads()
	assert.Equal(t, int64(0), ok)
	assert.Equal(t, int64(1), failed)
}
