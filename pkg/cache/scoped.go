package cache

// ScopedKeyer prefixes every key of an inner Keyer. Generation results
// fetched with a caller's bearer token are stored under that caller's scope
// so they are never served to anyone else.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer prefixes the keys of inner, or of a DefaultKeyer when inner
// is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ForToken scopes inner to the holder of token. The token itself never
// appears in a key, only a short digest of it. An empty token returns inner
// unchanged.
func ForToken(inner Keyer, token string) Keyer {
	if token == "" {
		return inner
	}
	return NewScopedKeyer(inner, "user:"+Hash([]byte(token))[:16]+":")
}

func (k *ScopedKeyer) IdeaKey(idea string) string {
	return k.prefix + k.inner.IdeaKey(idea)
}

func (k *ScopedKeyer) LayoutKey(archHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(archHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
