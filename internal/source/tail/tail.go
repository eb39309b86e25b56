// Package tail reads records from a JSON-lines recording dump, optionally
// following it as it grows.
package tail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aevon-lab/jfrtel/internal/source"
	"github.com/hpcloud/tail"
)

const component = "TailSource"

// Options selects the file and how it is read.
type Options struct {
	Path string

	// Follow keeps reading as the file grows and across rotation. Without
	// it the source stops at end of file.
	Follow bool

	// FromStart reads existing content first; otherwise only appended lines
	// are read. Ignored without Follow.
	FromStart bool
}

// Source tails one file into an ingester.
type Source struct {
	opts     Options
	ingester source.Ingester
	counters source.Counters
}

// New creates a tail source.
func New(opts Options, ingester source.Ingester) *Source {
	if ingester == nil {
		panic("tail: ingester must not be nil")
	}
	return &Source{opts: opts, ingester: ingester}
}

func (s *Source) config() tail.Config {
	cfg := tail.Config{
		Follow:    s.opts.Follow,
		ReOpen:    s.opts.Follow,
		MustExist: !s.opts.Follow,
		Logger:    slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}
	if s.opts.Follow && !s.opts.FromStart {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}
	return cfg
}

// Run reads lines until end of file (without Follow) or until ctx is done.
func (s *Source) Run(ctx context.Context) error {
	t, err := tail.TailFile(s.opts.Path, s.config())
	if err != nil {
		return fmt.Errorf("tail %s: %w", s.opts.Path, err)
	}
	defer t.Cleanup()

	slog.Info("["+component+"] Reading records", "path", s.opts.Path, "follow", s.opts.Follow)

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				slog.Info("["+component+"] Reached end of file", "path", s.opts.Path, "stats", s.counters.Snapshot())
				return nil
			}
			if line.Err != nil {
				slog.Warn("["+component+"] Read error", "path", s.opts.Path, "error", line.Err)
				continue
			}
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			if err := source.Deliver(ctx, s.ingester, &s.counters, component, []byte(text)); err != nil {
				_ = t.Stop()
				return nil
			}
		case <-ctx.Done():
			slog.Info("["+component+"] Stopping (context cancelled)", "path", s.opts.Path)
			_ = t.Stop()
			return nil
		}
	}
}

// Stats returns the line counters.
func (s *Source) Stats() source.Stats {
	return s.counters.Snapshot()
}
