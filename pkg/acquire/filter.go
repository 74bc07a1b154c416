package acquire

import "fmt"

// ZipSizeLimit is the default largest archive worth downloading.
const ZipSizeLimit int64 = 20 << 20

// Filter decides which index entries to download. Zero bounds are unset.
type Filter struct {
	ZipSizeLimit int64
	MinOrder     int
	MaxOrder     int
}

// DefaultFilter returns a filter with [ZipSizeLimit] and no order bounds.
func DefaultFilter() Filter {
	return Filter{ZipSizeLimit: ZipSizeLimit}
}

// Skip returns a non-empty reason when e should not be downloaded.
// Entries with an unknown zip size are always skipped.
func (f Filter) Skip(e Entry) string {
	if e.ZipSize == UnknownSize {
		return "unknown zip size"
	}
	if f.ZipSizeLimit > 0 && e.ZipSize > f.ZipSizeLimit {
		return fmt.Sprintf("stated zip size > %s", FormatBytes(f.ZipSizeLimit))
	}
	if e.Order > 0 {
		if f.MinOrder > 0 && e.Order < f.MinOrder {
			return fmt.Sprintf("stated order %d below %d", e.Order, f.MinOrder)
		}
		if f.MaxOrder > 0 && e.Order > f.MaxOrder {
			return fmt.Sprintf("stated order %d above %d", e.Order, f.MaxOrder)
		}
	}
	return ""
}

// TooLarge reports whether an actual archive size exceeds the limit.
func (f Filter) TooLarge(size int64) bool {
	return f.ZipSizeLimit > 0 && size > f.ZipSizeLimit
}

// FormatBytes prints n in binary units ("20 MiB").
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	v := float64(n) / float64(div)
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d %ciB", int64(v), "KMGTPE"[exp])
	}
	return fmt.Sprintf("%.1f %ciB", v, "KMGTPE"[exp])
}
