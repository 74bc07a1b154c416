package acquire

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/format"
)

// Extract unpacks the zip archive at zipPath into <dir>/<stem> and returns
// the extracted files in archive order. A file that is not a zip archive is
// deleted and reported as INVALID_ARCHIVE. Members whose names escape the
// destination are rejected.
func Extract(zipPath, dir string) (dest string, files []string, err error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		os.Remove(zipPath)
		return "", nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "%s is not a zip", filepath.Base(zipPath))
	}
	defer zr.Close()

	stem := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	dest = filepath.Join(dir, stem)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "create %s", dest)
	}

	for _, zf := range zr.File {
		if err := errs.ValidatePath(zf.Name); err != nil {
			os.RemoveAll(dest)
			return "", nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "member %q", zf.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(zf.Name))
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				os.RemoveAll(dest)
				return "", nil, err
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			os.RemoveAll(dest)
			return "", nil, errs.Wrap(errs.ErrCodeInvalidArchive, err, "extract %s", zf.Name)
		}
		files = append(files, target)
	}
	return dest, files, nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// GraphFiles returns the files with a supported graph extension, in order.
func GraphFiles(files []string) []string {
	var out []string
	for _, f := range files {
		if format.Supported(f) {
			out = append(out, f)
		}
	}
	return out
}

// DirSize returns the total size of the regular files under dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
