package acquire

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/report"
)

// Preparer turns index entries into canonical graphs and report records:
// filter, download, extract, process the first graph file that parses,
// record the result, and clean up.
type Preparer struct {
	Fetcher *Fetcher
	Runner  *pipeline.Runner
	Sink    report.Sink // nil discards records
	Filter  Filter

	// ExtractDir receives unpacked archives. Empty uses Fetcher.Dir.
	ExtractDir string
	// Keep leaves downloads and extracted files in place.
	Keep bool

	Logger *log.Logger
}

// EntryResult is the terminal state of one index entry.
type EntryResult struct {
	Entry        Entry
	Status       pipeline.Status
	Reason       string
	Err          error
	Outcome      *pipeline.Outcome // set once a graph file was processed
	ZipSize      int64
	UnzippedSize int64
	Duration     time.Duration
}

// Prepare handles entries in order. Per-entry failures are reported in the
// results; only invalid options, a cancelled context or a sink failure stop
// the run.
func (p *Preparer) Prepare(ctx context.Context, entries []Entry, opts pipeline.Options, onResult func(EntryResult)) ([]EntryResult, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := p.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	results := make([]EntryResult, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := p.prepare(ctx, e, opts)
		logResult(logger, res)

		if res.Status == pipeline.StatusAccepted && p.Sink != nil {
			if err := p.Sink.Write(ctx, p.record(res)); err != nil {
				return results, err
			}
		}
		results = append(results, res)
		if onResult != nil {
			onResult(res)
		}
	}
	return results, nil
}

func (p *Preparer) prepare(ctx context.Context, e Entry, opts pipeline.Options) EntryResult {
	start := time.Now()
	res := EntryResult{Entry: e, ZipSize: e.ZipSize}
	done := func(status pipeline.Status, reason string, err error) EntryResult {
		res.Status, res.Reason, res.Err = status, reason, err
		res.Duration = time.Since(start)
		return res
	}

	if reason := p.Filter.Skip(e); reason != "" {
		return done(pipeline.StatusSkipped, reason, nil)
	}

	zipPath, err := p.Fetcher.Download(ctx, e.URL)
	if err != nil {
		return done(pipeline.StatusFailed, errs.UserMessage(err), err)
	}
	if info, err := os.Stat(zipPath); err == nil {
		res.ZipSize = info.Size()
	}

	dir := p.ExtractDir
	if dir == "" {
		dir = p.Fetcher.Dir
	}
	dest, files, err := Extract(zipPath, dir)
	if errs.Is(err, errs.ErrCodeInvalidArchive) {
		return done(pipeline.StatusSkipped, errs.UserMessage(err), nil)
	}
	if err != nil {
		return done(pipeline.StatusFailed, errs.UserMessage(err), err)
	}
	if !p.Keep {
		os.Remove(zipPath)
		defer os.RemoveAll(dest)
	}

	if p.Filter.TooLarge(res.ZipSize) {
		return done(pipeline.StatusSkipped, "zip size > "+FormatBytes(p.Filter.ZipSizeLimit), nil)
	}

	var last *pipeline.Outcome
	for _, path := range GraphFiles(files) {
		o := p.Runner.Process(ctx, path, opts)
		last = &o
		if o.Status != pipeline.StatusFailed {
			break
		}
	}
	if last == nil {
		return done(pipeline.StatusSkipped, "no graph file in archive", nil)
	}
	res.Outcome = last
	if size, err := DirSize(dest); err == nil {
		res.UnzippedSize = size
	}
	return done(last.Status, last.Reason, last.Err)
}

func (p *Preparer) record(res EntryResult) report.Record {
	r := report.FromOutcome(*res.Outcome)
	r.Name = res.Entry.Name
	r.Type = res.Entry.Type
	r.DownloadURL = res.Entry.URL
	r.ZipSize = res.ZipSize
	r.UnzippedSize = res.UnzippedSize
	return r
}

func logResult(logger *log.Logger, res EntryResult) {
	name := res.Entry.Name
	switch res.Status {
	case pipeline.StatusAccepted:
		logger.Info("written", "graph", name, "nodes", res.Outcome.Order, "edges", res.Outcome.Size)
	case pipeline.StatusSkipped:
		logger.Info("skipped", "graph", name, "reason", res.Reason)
	default:
		logger.Warn("failed", "graph", name, "err", res.Reason)
	}
}
