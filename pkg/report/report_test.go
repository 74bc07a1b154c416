package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/stats"
)

func c4() Record {
	return Record{
		Name:         "c4",
		Type:         "misc",
		Nodes:        4,
		Edges:        4,
		MaxDegree:    2,
		AvgDegree:    2,
		Density:      2.0 / 3.0,
		DownloadURL:  "https://example.org/c4.zip",
		ZipSize:      1234,
		UnzippedSize: 5678,
	}
}

func TestRow(t *testing.T) {
	got := strings.Join(c4().Row(), "|")
	want := "c4|misc|4|4|2|2.0|0.6666666666666666|https://example.org/c4.zip|1234|5678"
	if got != want {
		t.Errorf("Row() = %q, want %q", got, want)
	}
	if len(c4().Row()) != len(Columns) {
		t.Errorf("Row has %d fields, want %d", len(c4().Row()), len(Columns))
	}
}

func TestRowUnknownSizes(t *testing.T) {
	r := c4()
	r.ZipSize, r.UnzippedSize = 0, 0
	row := r.Row()
	if row[8] != "-" || row[9] != "-" {
		t.Errorf("sizes = %q %q, want - -", row[8], row[9])
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2.0"},
		{0.5, "0.5"},
		{1.75, "1.75"},
		{1e-7, "1e-07"},
		{0, "0.0"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromOutcome(t *testing.T) {
	o := pipeline.Outcome{
		RunID:   "run",
		Name:    "c4.edges",
		Bucket:  "order_02-32",
		Order:   4,
		Size:    4,
		Summary: stats.Summary{MaxDegree: 2, AvgDegree: 2, Density: 0.5},
	}
	r := FromOutcome(o)
	if r.Name != "c4" || r.Nodes != 4 || r.Edges != 4 || r.MaxDegree != 2 || r.Density != 0.5 {
		t.Errorf("FromOutcome() = %+v", r)
	}
	if r.RunID != "run" || r.Bucket != "order_02-32" {
		t.Errorf("run/bucket = %q/%q", r.RunID, r.Bucket)
	}
}

func TestTSVSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewTSVSink(&buf)
	ctx := context.Background()

	if err := s.Write(ctx, c4()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r := c4()
	r.Name = "k3"
	if err := s.Write(ctx, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "\r") {
		t.Error("output contains carriage returns")
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if lines[0] != strings.Join(Columns, "\t") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "k3\tmisc\t") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestTSVSinkHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	s := NewTSVSink(&buf)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, want := buf.String(), strings.Join(Columns, "\t")+"\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTSVSinkConcurrent(t *testing.T) {
	var buf bytes.Buffer
	s := NewTSVSink(&buf)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Write(ctx, c4())
		}()
	}
	wg.Wait()
	_ = s.Close(ctx)

	if n := strings.Count(buf.String(), "\n"); n != 17 {
		t.Errorf("got %d lines, want 17", n)
	}
}

func TestCreateTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graphs.tsv")
	s, err := CreateTSV(path)
	if err != nil {
		t.Fatalf("CreateTSV: %v", err)
	}
	ctx := context.Background()
	if err := s.Write(ctx, c4()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "\n") != 2 {
		t.Errorf("file = %q", data)
	}
}

type fakeCollection struct {
	docs map[string]Record
	err  error
}

func (f *fakeCollection) ReplaceOne(_ context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	name := filter.(bson.M)["name"].(string)
	if len(opts) == 0 || opts[0].Upsert == nil || !*opts[0].Upsert {
		return nil, errors.New("upsert not requested")
	}
	f.docs[name] = replacement.(Record)
	return &mongo.UpdateResult{}, nil
}

func TestMongoSinkUpserts(t *testing.T) {
	coll := &fakeCollection{docs: map[string]Record{}}
	s := &MongoSink{coll: coll}
	ctx := context.Background()

	if err := s.Write(ctx, c4()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	r := c4()
	r.Edges = 5
	if err := s.Write(ctx, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(coll.docs) != 1 || coll.docs["c4"].Edges != 5 {
		t.Errorf("docs = %+v", coll.docs)
	}
	if err := s.Close(ctx); err != nil {
		t.Errorf("Close without client: %v", err)
	}
}

func TestMongoSinkError(t *testing.T) {
	s := &MongoSink{coll: &fakeCollection{err: errors.New("down")}}
	err := s.Write(context.Background(), c4())
	if err == nil || !strings.Contains(err.Error(), "upsert c4") {
		t.Errorf("Write error = %v", err)
	}
}

type recordingSink struct {
	got    []Record
	closed bool
	err    error
}

func (s *recordingSink) Write(_ context.Context, r Record) error {
	s.got = append(s.got, r)
	return s.err
}

func (s *recordingSink) Close(context.Context) error {
	s.closed = true
	return s.err
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{err: errors.New("b failed")}
	m := MultiSink{a, b}
	ctx := context.Background()

	err := m.Write(ctx, c4())
	if err == nil || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("Write error = %v", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("records: a=%d b=%d, want 1 each", len(a.got), len(b.got))
	}
	if err := m.Close(ctx); err == nil {
		t.Error("Close should report b's error")
	}
	if !a.closed || !b.closed {
		t.Error("every sink should be closed")
	}
}
