package cpy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type copyResult struct {
	report *Report
	err    error
}

func waitCopy(t *testing.T, results <-chan copyResult) copyResult {
	t.Helper()

	select {
	case res := <-results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a copy")
	}

	return copyResult{}
}

func Test_Watch(t *testing.T) {
	assert := assert.New(t)

	src := writeTestFile(t, "src", []byte("first"))
	dst := filepath.Join(t.TempDir(), "dst")

	cfg := newTestConfig(4, 2, 8, 4)
	cfg.Watch.Debounce = 50 * time.Millisecond

	results := make(chan copyResult, 16)
	onCopy := func(report *Report, err error) {
		results <- copyResult{report, err}
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error)
	go func() {
		done <- Watch(ctx, src, dst, cfg, onCopy)
	}()

	res := waitCopy(t, results)
	require.NoError(t, res.err)
	assert.Equal(int64(5), res.report.WrittenBytes)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal([]byte("first"), data)

	// Give the watcher the time to be registered
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(src, []byte("second version"), 0o644))

	res = waitCopy(t, results)
	require.NoError(t, res.err)

	data, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal([]byte("second version"), data)

	cancel()

	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func Test_Watch_copyError(t *testing.T) {
	assert := assert.New(t)

	src := filepath.Join(t.TempDir(), "missing")
	dst := filepath.Join(t.TempDir(), "dst")

	results := make(chan copyResult, 16)
	onCopy := func(report *Report, err error) {
		results <- copyResult{report, err}
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error)
	go func() {
		done <- Watch(ctx, src, dst, nil, onCopy)
	}()

	// A missing source does not stop the watch
	res := waitCopy(t, results)
	assert.Error(res.err)

	cancel()
	assert.NoError(<-done)
}

func Test_Watch_stream(t *testing.T) {
	assert := assert.New(t)

	dst := filepath.Join(t.TempDir(), "dst")

	assert.ErrorIs(Watch(t.Context(), StdStream, dst, nil, nil), ErrWatchStream)
	assert.ErrorIs(Watch(t.Context(), dst, StdStream, nil, nil), ErrWatchStream)
}

func Test_Watch_missingDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "missing", "src")
	dst := filepath.Join(t.TempDir(), "dst")

	assert.ErrorIs(t, Watch(t.Context(), src, dst, nil, nil), ErrWatcher)
}
