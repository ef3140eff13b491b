package corpus

import "github.com/maastricht-university/edmo-corpus/meta"

// Speaker is an identified conversation participant. Its id never changes.
type Speaker struct {
	id   string
	meta meta.Map
}

func NewSpeaker(id string) *Speaker {
	return &Speaker{id: id, meta: meta.Map{}}
}

func (s *Speaker) ID() string { return s.id }

// AddMeta stores a copy of v under key, overwriting any previous value.
// The value's shape is not checked.
func (s *Speaker) AddMeta(key string, v meta.Value) {
	s.meta[key] = v.Clone()
}

// GetMeta returns a copy of the value stored under key.
func (s *Speaker) GetMeta(key string) (meta.Value, bool) {
	v, ok := s.meta[key]
	return v.Clone(), ok
}

// Meta returns a copy of the speaker's metadata.
func (s *Speaker) Meta() meta.Map { return s.meta.Clone() }
