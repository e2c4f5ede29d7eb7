package star

// Lookup is a natural-key -> surrogate-id index built once per dimension and
// then read-only. The fact assembler uses it as a left-outer join: a miss
// yields a null foreign key, never a dropped row.
type Lookup struct {
	ids map[string]int64
}

func NewLookup(size int) *Lookup {
	return &Lookup{ids: make(map[string]int64, size)}
}

func (l *Lookup) Put(key string, id int64) {
	l.ids[key] = id
}

func (l *Lookup) Get(key string) (int64, bool) {
	id, ok := l.ids[key]
	return id, ok
}

func (l *Lookup) Len() int { return len(l.ids) }
