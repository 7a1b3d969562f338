package audioset

import "sort"

// Selection is a set of tag ids. The zero value is an empty selection.
type Selection struct {
	ids map[string]struct{}
}

// Toggle removes id if selected, otherwise adds it. It reports whether id is
// selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

func (s *Selection) Clear() {
	s.ids = nil
}

// IDs returns the selected ids in registry order; ids outside the registry
// follow, sorted.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for _, a := range registry {
		if _, ok := s.ids[a.ID]; ok {
			out = append(out, a.ID)
		}
	}

	var extra []string
	for id := range s.ids {
		if !Known(id) {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
