package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Mode tells training episodes from evaluation episodes.
type Mode string

const (
	Train Mode = "train"
	Eval  Mode = "eval"
)

// EpisodeRecord is what a runner reports at the end of every episode.
type EpisodeRecord struct {
	RunID       string
	Mode        Mode
	Episode     int
	Score       int
	TotalReward float64
	Length      int
	Steps       int
	Alpha       float64
	Gamma       float64
	Epsilon     float64
	FinishedAt  time.Time
}

// Sink consumes episode records.
type Sink interface {
	Record(ctx context.Context, rec EpisodeRecord) error
	Close() error
}

// NewSink builds a sink backend by name: "tsv" and "sqlite" write to path,
// "memory" keeps records in memory and "" or "none" discards them.
func NewSink(ctx context.Context, kind, path string) (Sink, error) {
	switch kind {
	case "", "none":
		return Discard{}, nil
	case "memory":
		return NewMemorySink(), nil
	case "tsv":
		return NewTSVSink(path)
	case "sqlite":
		s := NewSQLiteSink(path)
		if err := s.Init(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Errorf("unsupported metrics backend: %s", kind)
	}
}

// Discard drops every record.
type Discard struct{}

func (Discard) Record(context.Context, EpisodeRecord) error { return nil }
func (Discard) Close() error                                { return nil }

// MultiSink fans records out to several sinks, stopping at the first error.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, rec EpisodeRecord) error {
	for _, s := range m {
		if err := s.Record(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
