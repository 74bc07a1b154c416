package cache

// ScopedKeyer wraps a Keyer with a prefix, so that several corpora can share
// one backend without colliding:
//
//	snap := NewScopedKeyer(NewDefaultKeyer(), "corpus:snap:")
//	dimacs := NewScopedKeyer(NewDefaultKeyer(), "corpus:dimacs:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ResultKey generates a prefixed key for a canonical result.
func (k *ScopedKeyer) ResultKey(contentHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(contentHash, opts)
}
