// Package pipeline curates graph dataset files into canonical text.
//
// Every input file goes through the same stages:
//
//  1. Parse: detect the format from the extension, apply known patches and
//     build a graph (package format)
//  2. Validate: reject graphs that are too small, edgeless, disconnected or
//     too large (package validate)
//  3. Canonicalize: collapse direction, drop self-loops, relabel in
//     first-seen order and serialize (package canon)
//  4. Summarize: degree statistics (package stats)
//  5. Write: place the text under the bucket matching the graph's order
//
// A file never aborts the batch. Each one ends as an [Outcome] with status
// accepted, skipped or failed, and produces exactly one log line.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	outcomes, err := runner.Run(ctx, paths, pipeline.Options{
//	    OutputDir: "data/graphs",
//	    Workers:   4,
//	}, nil)
//
// [Runner.Canonical] runs stages 1 to 4 on an in-memory file, which is what
// the HTTP service and the canon command use.
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tahmid-khan/cvc-approximation/pkg/cache"
	"github.com/tahmid-khan/cvc-approximation/pkg/canon"
	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format"
	"github.com/tahmid-khan/cvc-approximation/pkg/stats"
	"github.com/tahmid-khan/cvc-approximation/pkg/validate"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultWorkers processes one file at a time.
	DefaultWorkers = 1

	// MaxWorkers bounds file-level parallelism.
	MaxWorkers = 64
)

// Bucket is an output subdirectory for graphs whose order lies in
// [MinOrder, MaxOrder].
type Bucket struct {
	Name     string `toml:"name" json:"name" validate:"required"`
	MinOrder int    `toml:"min_order" json:"min_order" validate:"gte=0"`
	MaxOrder int    `toml:"max_order" json:"max_order" validate:"gtefield=MinOrder"`
}

// Contains reports whether order falls in the bucket.
func (b Bucket) Contains(order int) bool {
	return order >= b.MinOrder && order <= b.MaxOrder
}

// DefaultBuckets returns the order ranges used by the downstream solver.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Name: "order_02-32", MinOrder: 2, MaxOrder: 32},
		{Name: "order_33-64", MinOrder: 33, MaxOrder: 64},
		{Name: "order_65-99", MinOrder: 65, MaxOrder: 99},
	}
}

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run.
type Options struct {
	Ordering canon.Ordering `json:"ordering,omitempty"`

	// Rules gates accepted graphs. Nil selects validate.DefaultRules; a zero
	// value only demands a connected graph with at least one edge.
	Rules *validate.Rules `json:"rules,omitempty"`

	// Buckets routes accepted graphs by order. Nil selects DefaultBuckets;
	// an empty, non-nil slice writes every accepted graph to OutputDir.
	Buckets []Bucket `json:"buckets,omitempty"`

	OutputDir     string            `json:"output_dir,omitempty"`
	Workers       int               `json:"workers,omitempty"`
	Refresh       bool              `json:"refresh,omitempty"` // ignore cached results
	IntegerLabels bool              `json:"integer_labels,omitempty"`
	Patches       format.PatchTable `json:"patches,omitempty"`

	// MaxParseOrder bounds the order a matrix header may declare before
	// anything is allocated. Zero means the parser default.
	MaxParseOrder int `json:"max_parse_order,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Ordering == "" {
		o.Ordering = canon.DefaultOrdering
	}
	if _, err := canon.ParseOrdering(string(o.Ordering)); err != nil {
		return err
	}
	rules := validate.DefaultRules()
	if o.Rules != nil {
		rules = *o.Rules
	}
	o.Rules = &rules
	if o.Rules.MinOrder < 0 || o.Rules.MaxOrder < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "order bounds must not be negative")
	}
	if o.Rules.MaxOrder > 0 && o.Rules.MaxOrder < o.Rules.MinOrder {
		return errs.New(errs.ErrCodeInvalidConfig, "max order %d is below min order %d", o.Rules.MaxOrder, o.Rules.MinOrder)
	}
	if o.Buckets == nil {
		o.Buckets = DefaultBuckets()
	}
	if err := ValidateBuckets(o.Buckets); err != nil {
		return err
	}
	if o.MaxParseOrder < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "max parse order must not be negative")
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers < 1 || o.Workers > MaxWorkers {
		return errs.New(errs.ErrCodeInvalidConfig, "workers must be between 1 and %d, got %d", MaxWorkers, o.Workers)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateBuckets checks that bucket names are usable directory names and
// that no two ranges overlap.
func ValidateBuckets(buckets []Bucket) error {
	sorted := slices.Clone(buckets)
	slices.SortFunc(sorted, func(a, b Bucket) int { return a.MinOrder - b.MinOrder })

	names := make(map[string]bool, len(sorted))
	for i, b := range sorted {
		if err := errs.ValidateFilename(b.Name); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "bucket name")
		}
		if names[b.Name] {
			return errs.New(errs.ErrCodeInvalidConfig, "duplicate bucket %q", b.Name)
		}
		names[b.Name] = true
		if b.MinOrder < 0 || b.MaxOrder < b.MinOrder {
			return errs.New(errs.ErrCodeInvalidConfig, "bucket %q has an empty range [%d, %d]", b.Name, b.MinOrder, b.MaxOrder)
		}
		if i > 0 && sorted[i-1].MaxOrder >= b.MinOrder {
			return errs.New(errs.ErrCodeInvalidConfig, "buckets %q and %q overlap", sorted[i-1].Name, b.Name)
		}
	}
	return nil
}

// FormatOptions returns the parser options.
func (o *Options) FormatOptions() format.Options {
	return format.Options{IntegerLabels: o.IntegerLabels, Patches: o.Patches, MaxOrder: o.MaxParseOrder}
}

// ResultKeyOpts returns the cache key options of a file called name.
func (o *Options) ResultKeyOpts(f format.Format, name string) cache.ResultKeyOpts {
	k := cache.ResultKeyOpts{
		Format:        f.String(),
		Ordering:      string(o.Ordering),
		MinOrder:      o.Rules.MinOrder,
		MaxOrder:      o.Rules.MaxOrder,
		IntegerLabels: o.IntegerLabels && f == format.EdgeList,
	}
	if p := o.FormatOptions().PatchesFor(name); len(p) > 0 {
		k.PatchHash = cache.Hash(fmt.Appendf(nil, "%v", p))
	}
	return k
}

// bucketFor returns the bucket of an accepted graph. ok is false when
// buckets are configured and none contains order.
func (o *Options) bucketFor(order int) (name string, ok bool) {
	if len(o.Buckets) == 0 {
		return "", true
	}
	for _, b := range o.Buckets {
		if b.Contains(order) {
			return b.Name, true
		}
	}
	return "", false
}

// =============================================================================
// Results
// =============================================================================

// Status is the terminal state of one input file.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Skip reasons that do not come from the validator.
const (
	ReasonDuplicate   = "duplicate name"
	ReasonUnsupported = "unsupported format"
)

// Result is the canonical form of one file, or the reason it was rejected.
type Result struct {
	Format format.Format `json:"-"`

	// Rejection is set when the validator refused the graph; Text and
	// Summary are then empty and Order/Size describe the parsed graph.
	Rejection *validate.Rejection `json:"rejection,omitempty"`

	Order   int           `json:"order"`
	Size    int           `json:"size"`
	Summary stats.Summary `json:"summary"`
	Text    []byte        `json:"text,omitempty"`

	CacheHit bool `json:"-"`
}

// Accepted reports whether the graph passed validation.
func (r *Result) Accepted() bool { return r.Rejection == nil }

// Outcome records what happened to one input file.
type Outcome struct {
	RunID  string
	Path   string
	Name   string
	Format format.Format
	Status Status
	Reason string // skip reason or failure message
	Err    error  // set when Status is StatusFailed

	Bucket   string
	Output   string
	Order    int
	Size     int
	Summary  stats.Summary
	CacheHit bool
	Duration time.Duration
}
