package bytecode

// Interner deduplicates String heap objects by content, so equal byte
// content always yields the identical *String (spec.md §3 invariant:
// "Strings are interned: equal content implies identical String object").
// The intern table is a weak GC root (spec.md §4.5 "Roots"): entries whose
// *String has no other references are swept like any other garbage.
type Interner struct {
	table map[string]*String
}

func NewInterner() *Interner {
	return &Interner{table: make(map[string]*String)}
}

// Intern returns the canonical *String for s, allocating one on first use.
func (in *Interner) Intern(s string) *String {
	if existing, ok := in.table[s]; ok {
		return existing
	}
	str := &String{Value: s}
	in.table[s] = str
	return str
}

// Sweep drops table entries for strings the collector is about to free
// (white after a full mark pass with no other roots referencing them).
func (in *Interner) Sweep(isGarbage func(*String) bool) {
	for k, v := range in.table {
		if isGarbage(v) {
			delete(in.table, k)
		}
	}
}

// All returns every interned string, used by the collector to seed its
// weak-root sweep.
func (in *Interner) All() []*String {
	out := make([]*String, 0, len(in.table))
	for _, v := range in.table {
		out = append(out, v)
	}
	return out
}
