package loader

// AliasTable substitutes requested ids before resolution. An entry with an
// empty substitute is ignored.
type AliasTable map[string]string

// DefaultAliases maps Node stream ids onto their browser-compatible shims.
func DefaultAliases() AliasTable {
	return AliasTable{
		"stream":                    "readable-stream",
		"./internal/streams/stream": "./internal/streams/stream-browser",
	}
}

// Lookup returns the substitute for id and true, or id and false when id
// is not remapped.
func (t AliasTable) Lookup(id string) (string, bool) {
	sub, ok := t[id]
	if !ok || sub == "" {
		return id, false
	}
	return sub, true
}

// Merge returns a new table holding t overlaid with other.
func (t AliasTable) Merge(other AliasTable) AliasTable {
	out := make(AliasTable, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
