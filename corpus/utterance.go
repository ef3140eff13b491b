package corpus

import "github.com/maastricht-university/edmo-corpus/meta"

// Utterance is one turn of text attributed to a speaker. The speaker is
// held by id and resolved through the owning corpus.
type Utterance struct {
	id        string
	text      string
	speakerID string
	speaker   *Speaker
	meta      meta.Map
}

// NewUtterance creates an utterance spoken by spk. spk may be shared by any
// number of utterances.
func NewUtterance(id, text string, spk *Speaker) *Utterance {
	u := &Utterance{id: id, text: text, speaker: spk, meta: meta.Map{}}
	if spk != nil {
		u.speakerID = spk.id
	}
	return u
}

func (u *Utterance) ID() string        { return u.id }
func (u *Utterance) Text() string      { return u.text }
func (u *Utterance) SpeakerID() string { return u.speakerID }

// Speaker returns the resolved speaker, nil if the utterance was built
// without one.
func (u *Utterance) Speaker() *Speaker { return u.speaker }

// AddMeta stores a copy of v under key, overwriting any previous value.
// The value's shape is not checked, so parse trees and plain scalars are
// stored alike.
func (u *Utterance) AddMeta(key string, v meta.Value) {
	u.meta[key] = v.Clone()
}

// GetMeta returns a copy of the value stored under key.
func (u *Utterance) GetMeta(key string) (meta.Value, bool) {
	v, ok := u.meta[key]
	return v.Clone(), ok
}

// Meta returns a copy of the utterance's metadata.
func (u *Utterance) Meta() meta.Map { return u.meta.Clone() }
