package acquire

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/httputil"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
	"github.com/tahmid-khan/cvc-approximation/pkg/report"
)

func zipOf(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadIndex(t *testing.T) {
	in := "name\ttype\tnodes\tedges\tdownload_url\tzip_size\n" +
		"c4\tmisc\t4\t4\thttps://example.org/data/c4.zip\t120\n" +
		"big\tbio\t1,200\t9\thttps://example.org/data/big.zip\t-\n" +
		"\tsoc\t\t\thttps://example.org/data/anon.zip?dl=1\t7\n" +
		"empty\tsoc\t3\t3\t\t5\n"

	entries, err := ReadIndex(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	want := []Entry{
		{Name: "c4", Type: "misc", URL: "https://example.org/data/c4.zip", Order: 4, ZipSize: 120},
		{Name: "big", Type: "bio", URL: "https://example.org/data/big.zip", Order: 1200, ZipSize: UnknownSize},
		{Name: "anon", Type: "soc", URL: "https://example.org/data/anon.zip?dl=1", ZipSize: 7},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestReadIndexAliases(t *testing.T) {
	in := "zip_url\tgraph_order\n" + "https://example.org/k3.zip\t3\n"
	entries, err := ReadIndex(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "k3" || entries[0].Order != 3 || entries[0].ZipSize != UnknownSize {
		t.Errorf("entries = %+v", entries)
	}
}

func TestReadIndexErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no url column", "name\ttype\nc4\tmisc\n"},
		{"bad scheme", "download_url\nftp://example.org/a.zip\n"},
		{"bad order", "download_url\tnodes\nhttps://example.org/a.zip\tmany\n"},
		{"bad size", "download_url\tzip_size\nhttps://example.org/a.zip\t-3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadIndex(strings.NewReader(tt.in))
			if !errs.Is(err, errs.ErrCodeInvalidFormat) {
				t.Errorf("err = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	f := Filter{ZipSizeLimit: ZipSizeLimit, MinOrder: 3, MaxOrder: 99}
	tests := []struct {
		name string
		e    Entry
		skip bool
	}{
		{"ok", Entry{ZipSize: 100, Order: 10}, false},
		{"unknown order", Entry{ZipSize: 100}, false},
		{"unknown size", Entry{ZipSize: UnknownSize, Order: 10}, true},
		{"at limit", Entry{ZipSize: ZipSizeLimit}, false},
		{"over limit", Entry{ZipSize: ZipSizeLimit + 1}, true},
		{"too small", Entry{ZipSize: 1, Order: 2}, true},
		{"too large", Entry{ZipSize: 1, Order: 100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Skip(tt.e) != ""; got != tt.skip {
				t.Errorf("Skip() = %q, want skip=%v", f.Skip(tt.e), tt.skip)
			}
		})
	}
	if r := f.Skip(Entry{ZipSize: ZipSizeLimit + 1}); r != "stated zip size > 20 MiB" {
		t.Errorf("reason = %q", r)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:           "512 B",
		1536:          "1.5 KiB",
		20 << 20:      "20 MiB",
		3 << 30:       "3 GiB",
		5<<20 + 1<<19: "5.5 MiB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestArchiveName(t *testing.T) {
	if got := ArchiveName("https://nrvis.com/./download/data/bio/bio-MUTAG_g1.zip"); got != "bio-MUTAG_g1.zip" {
		t.Errorf("ArchiveName = %q", got)
	}
	if got := ArchiveStem("https://example.org/a/b.zip?x=1"); got != "b" {
		t.Errorf("ArchiveStem = %q", got)
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "g.zip")
	data := zipOf(t, map[string]string{"readme.html": "<p>", "sub/g.mtx": "x"}, "readme.html", "sub/g.mtx")
	if err := os.WriteFile(zipPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	dest, files, err := Extract(zipPath, dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if dest != filepath.Join(dir, "g") {
		t.Errorf("dest = %q", dest)
	}
	if len(files) != 2 || files[1] != filepath.Join(dest, "sub", "g.mtx") {
		t.Errorf("files = %v", files)
	}
	if got := GraphFiles(files); len(got) != 1 || filepath.Base(got[0]) != "g.mtx" {
		t.Errorf("GraphFiles = %v", got)
	}
	size, err := DirSize(dest)
	if err != nil || size != 4 {
		t.Errorf("DirSize = %d, %v; want 4", size, err)
	}
}

func TestExtractNotZip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.zip")
	if err := os.WriteFile(path, []byte("<html>moved</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Extract(path, dir)
	if !errs.Is(err, errs.ErrCodeInvalidArchive) {
		t.Fatalf("err = %v, want INVALID_ARCHIVE", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("non-zip download should be deleted")
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	data := zipOf(t, map[string]string{"../escape.mtx": "x"}, "../escape.mtx")
	if err := os.WriteFile(zipPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Extract(zipPath, filepath.Join(dir, "out"))
	if !errs.Is(err, errs.ErrCodeInvalidArchive) {
		t.Fatalf("err = %v, want INVALID_ARCHIVE", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.mtx")); !os.IsNotExist(err) {
		t.Error("member escaped the destination")
	}
}

func testFetcher(dir string) *Fetcher {
	f := NewFetcher(dir)
	f.Attempts = 3
	f.Delay = time.Millisecond
	return f
}

func TestDownloadRetriesAndReuses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := testFetcher(t.TempDir())
	ctx := context.Background()

	path, err := f.Download(ctx, srv.URL+"/d/a.zip")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "payload" {
		t.Errorf("content = %q", data)
	}
	if _, err := f.Download(ctx, srv.URL+"/d/a.zip"); err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hit %d times, want 2", n)
	}
}

func TestDownloadNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := testFetcher(t.TempDir())
	_, err := f.Download(context.Background(), srv.URL+"/missing.zip")
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
	if hits.Load() != 1 {
		t.Errorf("404 should not be retried, got %d requests", hits.Load())
	}
	entries, _ := os.ReadDir(f.Dir)
	if len(entries) != 0 {
		t.Errorf("download dir not empty: %v", entries)
	}
}

func TestLoadIndexCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("download_url\nhttps://example.org/a.zip\n"))
	}))
	defer srv.Close()

	idx, err := httputil.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	f := testFetcher(t.TempDir())
	f.Index = idx

	for i := 0; i < 2; i++ {
		entries, err := f.LoadIndex(context.Background(), srv.URL+"/index.tsv")
		if err != nil {
			t.Fatalf("LoadIndex: %v", err)
		}
		if len(entries) != 1 || entries[0].Name != "a" {
			t.Errorf("entries = %+v", entries)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("index fetched %d times, want 1", hits.Load())
	}
}

func TestLoadIndexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.tsv")
	if err := os.WriteFile(path, []byte("download_url\nhttps://example.org/b.zip\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := NewFetcher(t.TempDir()).LoadIndex(context.Background(), path)
	if err != nil || len(entries) != 1 {
		t.Fatalf("LoadIndex = %+v, %v", entries, err)
	}
	_, err = NewFetcher(t.TempDir()).LoadIndex(context.Background(), path+".missing")
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

type memSink struct{ records []report.Record }

func (s *memSink) Write(_ context.Context, r report.Record) error {
	s.records = append(s.records, r)
	return nil
}

func (s *memSink) Close(context.Context) error { return nil }

func TestPrepare(t *testing.T) {
	archives := map[string][]byte{
		"/c4.zip": zipOf(t, map[string]string{
			"c4/broken.mtx": "%%MatrixMarket matrix coordinate pattern general\nnot numbers\n",
			"c4/c4.edges":   "1 2\n2 3\n3 4\n4 1\n",
		}, "c4/broken.mtx", "c4/c4.edges"),
		"/split.zip": zipOf(t, map[string]string{"split.edges": "1 2\n3 4\n"}, "split.edges"),
		"/docs.zip":  zipOf(t, map[string]string{"readme.txt": "hi"}, "readme.txt"),
		"/html.zip":  []byte("<html></html>"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	entries := []Entry{
		{Name: "c4", Type: "misc", URL: srv.URL + "/c4.zip", ZipSize: 10},
		{Name: "split", URL: srv.URL + "/split.zip", ZipSize: 10},
		{Name: "docs", URL: srv.URL + "/docs.zip", ZipSize: 10},
		{Name: "html", URL: srv.URL + "/html.zip", ZipSize: 10},
		{Name: "gone", URL: srv.URL + "/gone.zip", ZipSize: 10},
		{Name: "unknown", URL: srv.URL + "/c4.zip", ZipSize: UnknownSize},
	}

	downloads := t.TempDir()
	out := t.TempDir()
	sink := &memSink{}
	p := &Preparer{
		Fetcher: testFetcher(downloads),
		Runner:  pipeline.NewRunner(nil, nil, nil),
		Sink:    sink,
		Filter:  DefaultFilter(),
	}

	var seen int
	results, err := p.Prepare(context.Background(), entries, pipeline.Options{OutputDir: out}, func(EntryResult) { seen++ })
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if seen != len(entries) || len(results) != len(entries) {
		t.Fatalf("got %d results (%d callbacks), want %d", len(results), seen, len(entries))
	}

	want := []pipeline.Status{
		pipeline.StatusAccepted,
		pipeline.StatusSkipped,
		pipeline.StatusSkipped,
		pipeline.StatusSkipped,
		pipeline.StatusFailed,
		pipeline.StatusSkipped,
	}
	for i, res := range results {
		if res.Status != want[i] {
			t.Errorf("%s: status %s (%s), want %s", res.Entry.Name, res.Status, res.Reason, want[i])
		}
	}
	if !strings.HasPrefix(results[1].Reason, "not connected") {
		t.Errorf("split reason = %q", results[1].Reason)
	}
	if results[2].Reason != "no graph file in archive" {
		t.Errorf("docs reason = %q", results[2].Reason)
	}

	if len(sink.records) != 1 {
		t.Fatalf("records = %+v", sink.records)
	}
	r := sink.records[0]
	if r.Name != "c4" || r.Type != "misc" || r.Nodes != 4 || r.Edges != 4 || r.MaxDegree != 2 {
		t.Errorf("record = %+v", r)
	}
	if r.ZipSize != int64(len(archives["/c4.zip"])) || r.UnzippedSize <= 0 {
		t.Errorf("sizes = %d/%d", r.ZipSize, r.UnzippedSize)
	}

	data, err := os.ReadFile(filepath.Join(out, "order_02-32", "c4.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4\n4\n0 1\n0 3\n1 2\n2 3\n" {
		t.Errorf("output = %q", data)
	}

	left, _ := os.ReadDir(downloads)
	if len(left) != 0 {
		t.Errorf("downloads not cleaned up: %v", left)
	}
}

func TestPrepareActualSizeOverLimit(t *testing.T) {
	data := zipOf(t, map[string]string{"c.edges": "1 2\n2 3\n"}, "c.edges")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	p := &Preparer{
		Fetcher: testFetcher(t.TempDir()),
		Runner:  pipeline.NewRunner(nil, nil, nil),
		Filter:  Filter{ZipSizeLimit: 16},
	}
	results, err := p.Prepare(context.Background(),
		[]Entry{{Name: "c", URL: srv.URL + "/c.zip", ZipSize: 1}},
		pipeline.Options{OutputDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != pipeline.StatusSkipped || results[0].Reason != "zip size > 16 B" {
		t.Errorf("result = %s %q", results[0].Status, results[0].Reason)
	}
}

func TestPrepareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Preparer{Fetcher: testFetcher(t.TempDir()), Runner: pipeline.NewRunner(nil, nil, nil)}
	_, err := p.Prepare(ctx, []Entry{{Name: "x", URL: "https://example.org/x.zip", ZipSize: 1}},
		pipeline.Options{OutputDir: t.TempDir()}, nil)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
