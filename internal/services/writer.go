package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize  = 100
	DefaultWriteDelay = shared.MinWriteDelay
)

// Appender is the write half of a [Target].
type Appender interface {
	AppendToPlaylist(ctx context.Context, playlistID string, ids []string) error
	MaxBatchSize() int
}

// Pacer blocks until the next call may start. [*rate.Limiter] satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// BatchWriter appends ids to a playlist in chunks, spacing the calls.
type BatchWriter struct {
	target Appender
	size   int
	pacer  Pacer
	logger *log.Logger
}

// NewBatchWriter returns a writer whose chunk size is the smaller of batchSize and the target's
// ceiling, and whose calls start at least delay apart. A non-positive batchSize means the ceiling.
// A zero delay disables pacing.
func NewBatchWriter(target Appender, batchSize int, delay time.Duration, logger *log.Logger) *BatchWriter {
	var pacer Pacer
	if delay > 0 {
		pacer = rate.NewLimiter(rate.Every(delay), 1)
	}
	return NewBatchWriterWithPacer(target, batchSize, pacer, logger)
}

// NewBatchWriterWithPacer is [NewBatchWriter] with an explicit pacer, which may be nil.
func NewBatchWriterWithPacer(target Appender, batchSize int, pacer Pacer, logger *log.Logger) *BatchWriter {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &BatchWriter{
		target: target,
		size:   chunkSize(batchSize, target.MaxBatchSize()),
		pacer:  pacer,
		logger: logger,
	}
}

func chunkSize(configured, ceiling int) int {
	switch {
	case configured <= 0 && ceiling <= 0:
		return DefaultBatchSize
	case configured <= 0:
		return ceiling
	case ceiling <= 0:
		return configured
	default:
		return min(configured, ceiling)
	}
}

// ChunkSize returns the number of ids sent per call.
func (w *BatchWriter) ChunkSize() int { return w.size }

// AppendTracks writes ids in order and returns how many were written.
//
// The pacer is consulted before every chunk. The first chunk that fails stops the write;
// chunks already written stay in the playlist and are counted.
func (w *BatchWriter) AppendTracks(ctx context.Context, playlistID string, ids []string) (int, error) {
	total := (len(ids) + w.size - 1) / w.size
	written := 0

	for i := 0; i < len(ids); i += w.size {
		chunk := ids[i:min(i+w.size, len(ids))]
		n := i/w.size + 1

		if w.pacer != nil {
			if err := w.pacer.Wait(ctx); err != nil {
				return written, fmt.Errorf("%w: chunk %d/%d: %w", shared.ErrWriteFailed, n, total, err)
			}
		}

		if err := w.target.AppendToPlaylist(ctx, playlistID, chunk); err != nil {
			w.logger.Error("chunk failed", "playlist", playlistID, "chunk", n, "of", total, "written", written, "error", err)
			if errors.Is(err, shared.ErrWriteFailed) {
				return written, fmt.Errorf("chunk %d/%d: %w", n, total, err)
			}
			return written, fmt.Errorf("%w: chunk %d/%d: %w", shared.ErrWriteFailed, n, total, err)
		}

		written += len(chunk)
		w.logger.Debug("chunk written", "playlist", playlistID, "chunk", n, "of", total, "size", len(chunk))
	}

	return written, nil
}
