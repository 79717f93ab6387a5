package sampler

// deviceSet is an insertion-ordered collection of device records keyed by
// name.
type deviceSet[T any] struct {
	names []string
	items map[string]*T
}

func newDeviceSet[T any]() *deviceSet[T] {
	return &deviceSet[T]{items: make(map[string]*T)}
}

func (s *deviceSet[T]) get(name string) (*T, bool) {
	v, ok := s.items[name]
	return v, ok
}

// add appends v under name. An existing entry with the same name is replaced
// in place.
func (s *deviceSet[T]) add(name string, v *T) {
	if _, ok := s.items[name]; !ok {
		s.names = append(s.names, name)
	}
	s.items[name] = v
}

func (s *deviceSet[T]) len() int {
	return len(s.names)
}

func (s *deviceSet[T]) each(fn func(*T)) {
	for _, name := range s.names {
		fn(s.items[name])
	}
}

// removeIf drops every entry for which drop returns true, keeping the
// relative order of the rest. It returns the removed entries.
func (s *deviceSet[T]) removeIf(drop func(*T) bool) []*T {
	var removed []*T
	kept := s.names[:0]
	for _, name := range s.names {
		v := s.items[name]
		if drop(v) {
			removed = append(removed, v)
			delete(s.items, name)
			continue
		}
		kept = append(kept, name)
	}
	clear(s.names[len(kept):])
	s.names = kept

	return removed
}

// values copies the records out in order.
func (s *deviceSet[T]) values() []T {
	out := make([]T, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, *s.items[name])
	}
	return out
}
