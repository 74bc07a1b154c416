package acquire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/httputil"
)

// Fetcher downloads archives into Dir.
type Fetcher struct {
	Client *httputil.Client
	Dir    string

	// Index caches fetched index files. Nil disables caching.
	Index *httputil.Cache

	// Attempts and Delay override the retry policy of
	// [httputil.RetryWithBackoff] when set.
	Attempts int
	Delay    time.Duration

	Logger *log.Logger
}

// NewFetcher returns a Fetcher writing to dir with a default client.
func NewFetcher(dir string) *Fetcher {
	return &Fetcher{Client: httputil.NewClient(nil, nil), Dir: dir}
}

func (f *Fetcher) retry(ctx context.Context, fn func() error) error {
	if f.Attempts == 0 && f.Delay == 0 {
		return httputil.RetryWithBackoff(ctx, fn)
	}
	return httputil.Retry(ctx, f.Attempts, f.Delay, fn)
}

func (f *Fetcher) logger() *log.Logger {
	if f.Logger == nil {
		return log.New(io.Discard)
	}
	return f.Logger
}

// Download fetches url into Dir under its archive name and returns the
// local path. An existing file is reused without a request.
func (f *Fetcher) Download(ctx context.Context, url string) (string, error) {
	if err := errs.ValidateURL(url); err != nil {
		return "", err
	}
	name := ArchiveName(url)
	if err := errs.ValidateFilename(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidPath, err, "create download directory")
	}

	dest := filepath.Join(f.Dir, name)
	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() {
		f.logger().Debug("archive present", "path", dest)
		return dest, nil
	}

	err := f.retry(ctx, func() error {
		return f.fetch(ctx, url, dest)
	})
	if err != nil {
		return "", err
	}
	f.logger().Debug("downloaded", "url", url, "path", dest)
	return dest, nil
}

func (f *Fetcher) fetch(ctx context.Context, url, dest string) error {
	body, _, err := f.Client.Open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidPath, err, "create %s", dest)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httputil.Retryable(errs.Wrap(errs.ErrCodeNetwork, err, "download %s", url))
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, dest)
}

// LoadIndex reads an index from a local path or an http(s) URL. Fetched
// indexes are cached in f.Index until its TTL passes.
func (f *Fetcher) LoadIndex(ctx context.Context, src string) ([]Entry, error) {
	if errs.ValidateURL(src) != nil {
		file, err := os.Open(src)
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open index")
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeUnreadable, err, "open index")
		}
		defer file.Close()
		return ReadIndex(file)
	}

	var cache *httputil.Cache
	if f.Index != nil {
		cache = f.Index.Namespace("index:")
		var text string
		ok, err := cache.Get(src, &text)
		switch {
		case ok:
			return ReadIndex(bytes.NewReader([]byte(text)))
		case err != nil && !errors.Is(err, httputil.ErrExpired):
			f.logger().Warn("index cache read failed", "err", err)
		}
	}

	var data []byte
	err := f.retry(ctx, func() error {
		var err error
		data, err = f.Client.Get(ctx, src)
		return err
	})
	if err != nil {
		return nil, err
	}
	entries, err := ReadIndex(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Set(src, string(data)); err != nil {
			f.logger().Warn("index cache write failed", "err", err)
		}
	}
	return entries, nil
}
