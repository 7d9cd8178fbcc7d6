package tail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carverauto/stationwatch/pkg/logger"
)

func TestStreamDeliversLinesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o600))

	follower := NewFollower(path, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex

	var got []string

	errCh := make(chan error, 1)

	go func() {
		errCh <- follower.Stream(ctx, func(line string) error {
			mu.Lock()
			got = append(got, line)
			done := len(got) == 3
			mu.Unlock()

			if done {
				cancel()
			}

			return nil
		})
	}()

	// Append a line while the follower is already running.
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = file.WriteString("three\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the follower to stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"one", "two", "three"}, got)
}

func TestStreamPropagatesHandlerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages")
	require.NoError(t, os.WriteFile(path, []byte("bad line\n"), 0o600))

	follower := NewFollower(path, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wantErr := errors.New("handler gave up")

	err := follower.Stream(ctx, func(string) error { return wantErr })
	require.ErrorIs(t, err, wantErr)
}

func TestStreamRejectsNilHandler(t *testing.T) {
	follower := NewFollower(filepath.Join(t.TempDir(), "messages"), logger.NewTestLogger())

	err := follower.Stream(context.Background(), nil)
	require.ErrorIs(t, err, errStreamHandlerNil)
}
