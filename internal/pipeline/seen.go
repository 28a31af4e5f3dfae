package pipeline

// SeenSet tracks message IDs already handled within a single run, so the
// ingest and reply passes never process the same message twice even when a
// message shows up in both listings. It is rebuilt for every run and is not
// safe for concurrent use.
type SeenSet struct {
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Add(id string) {
	s.ids[id] = struct{}{}
}

func (s *SeenSet) Len() int {
	return len(s.ids)
}
