// Package config loads graphprep.toml.
//
// A config file sets defaults for every command; command-line flags
// override it. All sections are optional:
//
//	[validate]
//	min_order = 3
//
//	[output]
//	dir = "graphs"
//	ordering = "insertion"
//	workers = 4
//
//	[[bucket]]
//	name = "small"
//	min_order = 3
//	max_order = 40
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[report]
//	tsv = "filtered_graphs.tsv"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[acquire]
//	index = "network_repository_table.tsv"
//
//	[[patch]]
//	file = "ca-HepPh.mtx"
//	line = 2
//	strip = 1
package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/tahmid-khan/cvc-approximation/pkg/acquire"
	"github.com/tahmid-khan/cvc-approximation/pkg/canon"
	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/validate"
)

// FileName is the config file looked up in the working directory.
const FileName = "graphprep.toml"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the decoded config file.
type Config struct {
	Rules    validate.Rules    `toml:"validate"`
	Output   Output            `toml:"output"`
	Buckets  []pipeline.Bucket `toml:"bucket" validate:"dive"`
	Cache    Cache             `toml:"cache"`
	Report   Report            `toml:"report"`
	Acquire  Acquire           `toml:"acquire"`
	Server   Server            `toml:"server"`
	Patches  []FilePatch       `toml:"patch" validate:"dive"`
}

// Output controls where and how canonical files are written.
type Output struct {
	Dir           string `toml:"dir" validate:"required"`
	Ordering      string `toml:"ordering" validate:"omitempty,oneof=lexicographic insertion"`
	Workers       int    `toml:"workers" validate:"gte=0,lte=64"`
	IntegerLabels bool   `toml:"integer_labels"`
	// Flat writes every accepted graph to Dir, ignoring buckets.
	Flat           bool `toml:"flat"`
	DefaultPatches bool `toml:"default_patches"`
}

// Cache selects the result cache.
type Cache struct {
	Backend  string        `toml:"backend" validate:"oneof=file redis none"`
	Dir      string        `toml:"dir"`
	RedisURL string        `toml:"redis_url" validate:"required_if=Backend redis"`
	TTL      time.Duration `toml:"ttl" validate:"gte=0"`
}

// Report selects the metadata sinks. Empty values disable a sink.
type Report struct {
	TSV             string `toml:"tsv"`
	MongoURI        string `toml:"mongo_uri" validate:"omitempty,url"`
	MongoDatabase   string `toml:"mongo_database" validate:"required_with=MongoURI"`
	MongoCollection string `toml:"mongo_collection"`
}

// Acquire configures index downloads.
type Acquire struct {
	Index        string        `toml:"index"`
	DownloadDir  string        `toml:"download_dir" validate:"required"`
	ZipSizeLimit int64         `toml:"zip_size_limit" validate:"gte=0"`
	MinOrder     int           `toml:"min_order" validate:"gte=0"`
	MaxOrder     int           `toml:"max_order" validate:"gte=0"`
	IndexTTL     time.Duration `toml:"index_ttl" validate:"gte=0"`
	Keep         bool          `toml:"keep"`
}

// Server configures the HTTP service.
type Server struct {
	Addr        string `toml:"addr" validate:"required"`
	MaxBodySize   int64  `toml:"max_body_size" validate:"gt=0"`
	MaxParseOrder int    `toml:"max_parse_order" validate:"gte=0"`
}

// FilePatch is one [[patch]] entry.
type FilePatch struct {
	File         string `toml:"file" validate:"required"`
	format.Patch
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		Rules:    validate.DefaultRules(),
		Output: Output{
			Dir:            "graphs",
			Ordering:       string(canon.DefaultOrdering),
			Workers:        pipeline.DefaultWorkers,
			DefaultPatches: true,
		},
		Cache: Cache{
			Backend: CacheFile,
			TTL:     30 * 24 * time.Hour,
		},
		Report: Report{
			MongoDatabase:   "graphprep",
			MongoCollection: "graphs",
		},
		Acquire: Acquire{
			DownloadDir:  "downloads",
			ZipSizeLimit: acquire.ZipSizeLimit,
			IndexTTL:     24 * time.Hour,
		},
		Server: Server{
			Addr:          ":8080",
			MaxBodySize:   64 << 20,
			MaxParseOrder: 1 << 16,
		},
	}
}

// Load reads the config file at path over [Default]. An empty path reads
// [FileName] from the working directory if it exists.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(FileName); err != nil {
			return cfg, nil
		}
		path = FileName
	}

	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		return cfg, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file")
	}
	if err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errs.New(errs.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Parse decodes config text over [Default].
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return cfg, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
	}
	return cfg, cfg.Validate()
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the cross-section rules.
func (c Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Rules.MaxOrder > 0 && c.Rules.MaxOrder < c.Rules.MinOrder {
		return errs.New(errs.ErrCodeInvalidConfig, "validate.max_order %d is below validate.min_order %d", c.Rules.MaxOrder, c.Rules.MinOrder)
	}
	if c.Acquire.MaxOrder > 0 && c.Acquire.MaxOrder < c.Acquire.MinOrder {
		return errs.New(errs.ErrCodeInvalidConfig, "acquire.max_order %d is below acquire.min_order %d", c.Acquire.MaxOrder, c.Acquire.MinOrder)
	}
	if len(c.Buckets) > 0 {
		if err := pipeline.ValidateBuckets(c.Buckets); err != nil {
			return err
		}
	}
	return nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "invalid config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errs.New(errs.ErrCodeInvalidConfig, "%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	_, field, _ := strings.Cut(e.Namespace(), ".")
	switch e.Tag() {
	case "required", "required_if", "required_with":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "gte", "gt", "lte", "min", "max":
		return field + " is out of range"
	case "url":
		return field + " must be a URL"
	default:
		return field + " is invalid"
	}
}

// PatchTable returns the configured patches, over the built-in table when
// output.default_patches is set.
func (c Config) PatchTable() format.PatchTable {
	own := make(format.PatchTable)
	for _, p := range c.Patches {
		own[p.File] = append(own[p.File], p.Patch)
	}
	if c.Output.DefaultPatches {
		return format.DefaultPatches().Merge(own)
	}
	return own
}

// PipelineOptions returns the pipeline options described by c.
func (c Config) PipelineOptions() pipeline.Options {
	rules := c.Rules
	opts := pipeline.Options{
		Ordering:      canon.Ordering(c.Output.Ordering),
		Rules:         &rules,
		OutputDir:     c.Output.Dir,
		Workers:       c.Output.Workers,
		IntegerLabels: c.Output.IntegerLabels,
		Patches:       c.PatchTable(),
	}
	switch {
	case c.Output.Flat:
		opts.Buckets = []pipeline.Bucket{}
	case len(c.Buckets) > 0:
		opts.Buckets = c.Buckets
	}
	return opts
}

// Filter returns the acquisition filter described by c.
func (c Config) Filter() acquire.Filter {
	return acquire.Filter{
		ZipSizeLimit: c.Acquire.ZipSizeLimit,
		MinOrder:     c.Acquire.MinOrder,
		MaxOrder:     c.Acquire.MaxOrder,
	}
}
