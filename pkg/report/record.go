// Package report records the metadata of accepted graphs.
//
// A [Record] is one row of the corpus table. Records go to a [Sink]: a TSV
// file ([TSVSink]), a MongoDB collection ([MongoSink]), or both through
// [MultiSink].
package report

import (
	"context"
	"strconv"
	"strings"

	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
)

// Columns is the header of the TSV table, in order.
var Columns = []string{
	"name",
	"type",
	"nodes",
	"edges",
	"max_degree",
	"avg_degree",
	"density",
	"download_url",
	"zip_size",
	"unzipped_size",
}

// Record describes one accepted graph. Sizes are in bytes; a zero size is
// unknown.
type Record struct {
	Name         string  `json:"name" bson:"name"`
	Type         string  `json:"type" bson:"type"`
	Nodes        int     `json:"nodes" bson:"nodes"`
	Edges        int     `json:"edges" bson:"edges"`
	MaxDegree    int     `json:"max_degree" bson:"max_degree"`
	AvgDegree    float64 `json:"avg_degree" bson:"avg_degree"`
	Density      float64 `json:"density" bson:"density"`
	DownloadURL  string  `json:"download_url" bson:"download_url"`
	ZipSize      int64   `json:"zip_size" bson:"zip_size"`
	UnzippedSize int64   `json:"unzipped_size" bson:"unzipped_size"`

	// RunID and Bucket are stored in MongoDB only.
	RunID  string `json:"run_id,omitempty" bson:"run_id,omitempty"`
	Bucket string `json:"bucket,omitempty" bson:"bucket,omitempty"`
}

// FromOutcome fills the graph columns of a record from an accepted outcome.
// Type, download URL and sizes are left for the caller.
func FromOutcome(o pipeline.Outcome) Record {
	return Record{
		Name:      pipeline.Stem(o.Name),
		Nodes:     o.Order,
		Edges:     o.Size,
		MaxDegree: o.Summary.MaxDegree,
		AvgDegree: o.Summary.AvgDegree,
		Density:   o.Summary.Density,
		RunID:     o.RunID,
		Bucket:    o.Bucket,
	}
}

// Row returns the TSV fields of r, matching [Columns].
func (r Record) Row() []string {
	return []string{
		r.Name,
		r.Type,
		strconv.Itoa(r.Nodes),
		strconv.Itoa(r.Edges),
		strconv.Itoa(r.MaxDegree),
		formatFloat(r.AvgDegree),
		formatFloat(r.Density),
		r.DownloadURL,
		formatSize(r.ZipSize),
		formatSize(r.UnzippedSize),
	}
}

// formatFloat prints the shortest representation that round-trips, always
// with a decimal point ("2.0", "0.6666666666666666").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEN") {
		s += ".0"
	}
	return s
}

func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return strconv.FormatInt(n, 10)
}

// Sink receives records.
type Sink interface {
	Write(ctx context.Context, r Record) error
	Close(ctx context.Context) error
}
