package trace

// VisitedSet records the switches already queried in one trace, in the
// order they were added.
type VisitedSet struct {
	order []string
	seen  map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add inserts id and reports whether it was new.
func (v *VisitedSet) Add(id string) bool {
	if _, ok := v.seen[id]; ok {
		return false
	}
	v.seen[id] = struct{}{}
	v.order = append(v.order, id)
	return true
}

// Contains reports whether id was added.
func (v *VisitedSet) Contains(id string) bool {
	_, ok := v.seen[id]
	return ok
}

// Len returns the number of identities in the set.
func (v *VisitedSet) Len() int {
	return len(v.order)
}

// List returns the identities in insertion order.
func (v *VisitedSet) List() []string {
	return append([]string{}, v.order...)
}
