package report

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// TSVSink writes records as tab-separated rows with "\n" line endings.
// The header is written before the first record. It is safe for concurrent
// use.
type TSVSink struct {
	mu      sync.Mutex
	w       *csv.Writer
	closer  io.Closer
	started bool
}

// NewTSVSink writes to w. Close flushes but does not close w.
func NewTSVSink(w io.Writer) *TSVSink {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &TSVSink{w: cw}
}

// CreateTSV creates (or truncates) the file at path and writes to it.
// Close closes the file.
func CreateTSV(path string) (*TSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := NewTSVSink(f)
	s.closer = f
	return s, nil
}

// Header writes the header if no row has been written yet. Use it to
// produce a table even when no record is accepted.
func (s *TSVSink) Header() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header()
}

func (s *TSVSink) header() error {
	if s.started {
		return nil
	}
	s.started = true
	return s.w.Write(Columns)
}

// Write appends one record and flushes it.
func (s *TSVSink) Write(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.header(); err != nil {
		return err
	}
	if err := s.w.Write(r.Row()); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes pending output and closes the file opened by [CreateTSV].
func (s *TSVSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.header(); err != nil {
		return err
	}
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}

var _ Sink = (*TSVSink)(nil)
