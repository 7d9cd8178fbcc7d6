// Package tail follows a growing log file and delivers complete lines, in
// order, to a handler. Rotation and truncation re-open the file; the follower
// never invents or drops lines on its own.
package tail

import (
	"context"
	"errors"
	"fmt"

	"github.com/nxadm/tail"

	"github.com/carverauto/stationwatch/pkg/logger"
)

var (
	errStreamHandlerNil = errors.New("stream handler cannot be nil")
	errStreamEnded      = errors.New("log stream ended unexpectedly")
)

// Follower tails one file. The zero value is not usable; construct with
// NewFollower.
type Follower struct {
	path   string
	logger logger.Logger
}

// NewFollower returns a follower for the file at path. The file does not need
// to exist yet; following starts when it appears.
func NewFollower(path string, log logger.Logger) *Follower {
	return &Follower{
		path:   path,
		logger: log,
	}
}

// Stream reads the file from the beginning and invokes handler for every
// complete line in order, blocking between lines. It returns nil once ctx is
// canceled. A tailer failure or a handler error terminates the stream and is
// returned to the caller, which is expected to treat it as fatal.
func (f *Follower) Stream(ctx context.Context, handler func(line string) error) error {
	if handler == nil {
		return errStreamHandlerNil
	}

	t, err := tail.TailFile(f.path, tail.Config{
		Follow: true,
		ReOpen: true,
		Logger: tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", f.path, err)
	}

	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	f.logger.Info().Str("file", f.path).Msg("Following log file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				if waitErr := t.Wait(); waitErr != nil {
					return fmt.Errorf("tailing %s failed: %w", f.path, waitErr)
				}

				return fmt.Errorf("%w: %s", errStreamEnded, f.path)
			}

			if line.Err != nil {
				return fmt.Errorf("failed to read %s: %w", f.path, line.Err)
			}

			if err := handler(line.Text); err != nil {
				return err
			}
		}
	}
}
