package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tahmid-khan/cvc-approximation/pkg/cache"
	"github.com/tahmid-khan/cvc-approximation/pkg/canon"
	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format"
	"github.com/tahmid-khan/cvc-approximation/pkg/observability"
	"github.com/tahmid-khan/cvc-approximation/pkg/stats"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner may serve concurrent runs with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is the lifetime of cached results; zero selects cache.TTLResult.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects [cache.DefaultKeyer], and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// Canonical parses, validates, canonicalizes and summarizes the file called
// name with contents data. A validator rejection is reported in the result,
// not as an error; errors are format or internal failures.
func (r *Runner) Canonical(ctx context.Context, name string, data []byte, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	f, err := format.Detect(name)
	if err != nil {
		return nil, err
	}

	key := r.Keyer.ResultKey(cache.Hash(data), opts.ResultKeyOpts(f, name))
	if !opts.Refresh {
		if res, ok := r.cached(ctx, key); ok {
			res.Format = f
			return res, nil
		}
	}

	res, err := compute(ctx, f, name, data, opts)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, res)
	return res, nil
}

func compute(ctx context.Context, f format.Format, name string, data []byte, opts Options) (*Result, error) {
	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, name, f.String())
	start := time.Now()
	g, err := format.Parse(name, data, opts.FormatOptions())
	order := 0
	if g != nil {
		order = g.Order()
	}
	hooks.OnParseComplete(ctx, name, f.String(), order, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if rej := opts.Rules.Check(g); rej != nil {
		return &Result{Format: f, Rejection: rej, Order: g.Order(), Size: g.UndirectedSize()}, nil
	}

	c := canon.Canonicalize(g)
	text, err := canon.Marshal(c, opts.Ordering)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "serialize %s", name)
	}
	summary, err := stats.Summarize(c)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "summarize %s", name)
	}
	return &Result{
		Format:  f,
		Order:   c.Order(),
		Size:    c.Size(),
		Summary: summary,
		Text:    text,
	}, nil
}

func (r *Runner) cached(ctx context.Context, key string) (*Result, bool) {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, "result")
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		hooks.OnCacheMiss(ctx, "result")
		return nil, false
	}
	hooks.OnCacheHit(ctx, "result")
	res.CacheHit = true
	return &res, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = cache.TTLResult
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "result", len(data))
}

// Process runs the whole pipeline on the file at path and writes the
// canonical text of an accepted graph below opts.OutputDir. Every failure is
// captured in the returned Outcome.
func (r *Runner) Process(ctx context.Context, path string, opts Options) Outcome {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Outcome{Path: path, Name: filepath.Base(path), Status: StatusFailed, Reason: errs.UserMessage(err), Err: err}
	}
	return r.process(ctx, "", path, &opts, opts.Logger)
}

func (r *Runner) process(ctx context.Context, runID, path string, opts *Options, logger *log.Logger) Outcome {
	start := time.Now()
	out := Outcome{RunID: runID, Path: path, Name: filepath.Base(path)}
	out.Format, _ = format.Detect(path)

	finish := func() Outcome {
		out.Duration = time.Since(start)
		logOutcome(logger, out)
		observability.Pipeline().OnFileComplete(ctx, out.Name, string(out.Status), out.Reason, out.Duration)
		return out
	}

	if out.Format == format.Unknown {
		out.Status, out.Reason = StatusSkipped, ReasonUnsupported
		return finish()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		code := errs.ErrCodeUnreadable
		if os.IsNotExist(err) {
			code = errs.ErrCodeFileNotFound
		}
		return fail(&out, errs.Wrap(code, err, "read %s", out.Name), finish)
	}

	res, err := r.Canonical(ctx, out.Name, data, *opts)
	if err != nil {
		return fail(&out, err, finish)
	}
	out.Order, out.Size, out.CacheHit = res.Order, res.Size, res.CacheHit
	if !res.Accepted() {
		out.Status, out.Reason = StatusSkipped, res.Rejection.Error()
		return finish()
	}
	out.Summary = res.Summary

	bucket, ok := opts.bucketFor(res.Order)
	if !ok {
		out.Status, out.Reason = StatusSkipped, fmt.Sprintf("order %d outside buckets", res.Order)
		return finish()
	}
	out.Bucket = bucket

	if opts.OutputDir != "" {
		target := OutputPath(opts.OutputDir, bucket, out.Name)
		if err := WriteFileAtomic(target, res.Text); err != nil {
			return fail(&out, errs.Wrap(errs.ErrCodeInvalidPath, err, "write %s", target), finish)
		}
		out.Output = target
	}
	out.Status = StatusAccepted
	return finish()
}

func fail(out *Outcome, err error, finish func() Outcome) Outcome {
	out.Status, out.Err, out.Reason = StatusFailed, err, errs.UserMessage(err)
	return finish()
}

func logOutcome(logger *log.Logger, o Outcome) {
	switch o.Status {
	case StatusAccepted:
		logger.Info("accepted", "file", o.Name, "order", o.Order, "size", o.Size,
			"bucket", o.Bucket, "cached", o.CacheHit, "duration", o.Duration)
	case StatusSkipped:
		logger.Info("skipped", "file", o.Name, "reason", o.Reason)
	default:
		logger.Warn("failed", "file", o.Name, "err", o.Reason)
	}
}

// Run processes paths, in parallel when opts.Workers > 1, calling
// onOutcome (if non-nil) as each file finishes; calls are serialized.
//
// Inputs are checked up front for names that would produce the same output
// file; later duplicates are skipped. Outcomes are returned in input order.
// The only errors are setup errors and context cancellation, in which case
// the outcomes of the files finished so far are returned.
func (r *Runner) Run(ctx context.Context, paths []string, opts Options, onOutcome func(Outcome)) ([]Outcome, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "create output directory")
		}
	}

	runID := uuid.NewString()
	logger := opts.Logger.With("run", runID[:8])
	logger.Debug("starting run", "files", len(paths), "workers", opts.Workers)

	outcomes := make([]Outcome, len(paths))
	done := make([]bool, len(paths))
	var mu sync.Mutex
	emit := func(i int, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[i], done[i] = o, true
		if onOutcome != nil {
			onOutcome(o)
		}
	}

	dup := duplicates(paths)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		if dup[i] {
			o := Outcome{RunID: runID, Path: path, Name: filepath.Base(path), Status: StatusSkipped, Reason: ReasonDuplicate}
			o.Format, _ = format.Detect(path)
			logOutcome(logger, o)
			observability.Pipeline().OnFileComplete(ctx, o.Name, string(o.Status), o.Reason, 0)
			emit(i, o)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emit(i, r.process(gctx, runID, path, &opts, logger))
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	finished := make([]Outcome, 0, len(paths))
	for i, o := range outcomes {
		if done[i] {
			finished = append(finished, o)
		}
	}
	return finished, err
}

// duplicates marks every supported path whose stem was already taken by an
// earlier supported path. Unsupported paths never write output, so they do
// not claim a stem.
func duplicates(paths []string) []bool {
	seen := make(map[string]bool, len(paths))
	dup := make([]bool, len(paths))
	for i, p := range paths {
		if !format.Supported(p) {
			continue
		}
		s := Stem(p)
		dup[i] = seen[s]
		seen[s] = true
	}
	return dup
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
