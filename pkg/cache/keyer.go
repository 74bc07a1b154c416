package cache

// Keyer builds cache keys.
type Keyer interface {
	// ResultKey generates a key for the canonical result of one input file.
	ResultKey(contentHash string, opts ResultKeyOpts) string
}

// ResultKeyOpts lists every option that changes a canonical result.
type ResultKeyOpts struct {
	Format        string `json:"format"`
	Ordering      string `json:"ordering"`
	MinOrder      int    `json:"min_order"`
	MaxOrder      int    `json:"max_order"`
	IntegerLabels bool   `json:"integer_labels"`
	PatchHash     string `json:"patch_hash,omitempty"`
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey returns "result:<hash>", hashing the content hash together with
// the options.
func (DefaultKeyer) ResultKey(contentHash string, opts ResultKeyOpts) string {
	return hashKey("result", contentHash, opts)
}

var _ Keyer = DefaultKeyer{}
