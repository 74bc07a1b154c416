// Package acquire downloads and unpacks graph archives listed in an index.
//
// An index is a TSV table, one archive per row, as produced by scraping a
// network repository. [ReadIndex] parses it, [Filter] drops rows that are
// not worth downloading, [Fetcher] downloads an archive, and [Extract]
// unpacks it next to the download.
package acquire

import (
	"encoding/csv"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
)

// UnknownSize marks a size the index does not state.
const UnknownSize int64 = -1

// Entry is one row of an index.
type Entry struct {
	Name    string
	Type    string
	URL     string
	Order   int   // 0 when not stated
	ZipSize int64 // UnknownSize when not stated
}

var columnAliases = map[string]string{
	"name":         "name",
	"type":         "type",
	"download_url": "url",
	"zip_url":      "url",
	"url":          "url",
	"nodes":        "order",
	"graph_order":  "order",
	"zip_size":     "zip_size",
}

// ReadIndex parses a tab-separated index with a header row. The header must
// name a download URL column (download_url or zip_url). A missing name is
// taken from the archive file name.
func ReadIndex(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "index is empty")
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read index header")
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := columnAliases[key]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	if _, ok := cols["url"]; !ok {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "index has no download_url column")
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "index line %d", line)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		e := Entry{
			Name:    field("name"),
			Type:    field("type"),
			URL:     field("url"),
			ZipSize: UnknownSize,
		}
		if e.URL == "" {
			continue
		}
		if err := errs.ValidateURL(e.URL); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "index line %d", line)
		}
		if e.Name == "" {
			e.Name = ArchiveStem(e.URL)
		}
		if s := field("order"); s != "" && s != "-" {
			n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
			if err != nil {
				return nil, errs.New(errs.ErrCodeInvalidFormat, "index line %d: invalid order %q", line, s)
			}
			e.Order = n
		}
		if s := field("zip_size"); s != "" && s != "-" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 0 {
				return nil, errs.New(errs.ErrCodeInvalidFormat, "index line %d: invalid zip_size %q", line, s)
			}
			e.ZipSize = n
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ArchiveName returns the last path element of url, without query.
func ArchiveName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return path.Base(url)
}

// ArchiveStem returns [ArchiveName] without its extension.
func ArchiveStem(url string) string {
	name := ArchiveName(url)
	return strings.TrimSuffix(name, path.Ext(name))
}
