package corpus

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/maastricht-university/edmo-corpus/meta"
)

type SpeakerRecord struct {
	ID   string   `json:"id" yaml:"id"`
	Meta meta.Map `json:"meta" yaml:"meta"`
}

type UtteranceRecord struct {
	ID        string   `json:"id" yaml:"id"`
	Text      string   `json:"text" yaml:"text"`
	SpeakerID string   `json:"speaker" yaml:"speaker"`
	Meta      meta.Map `json:"meta" yaml:"meta"`
}

// Snapshot is the persisted form of a corpus: plain records with speakers
// referenced by id, utterances in insertion order.
type Snapshot struct {
	ID         string            `json:"id" yaml:"id"`
	Meta       meta.Map          `json:"meta" yaml:"meta"`
	Speakers   []SpeakerRecord   `json:"speakers" yaml:"speakers"`
	Utterances []UtteranceRecord `json:"utterances" yaml:"utterances"`
}

// Clone deep-copies s.
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{
		ID:   s.ID,
		Meta: s.Meta.Clone(),
		Speakers: lo.Map(s.Speakers, func(r SpeakerRecord, _ int) SpeakerRecord {
			return SpeakerRecord{ID: r.ID, Meta: r.Meta.Clone()}
		}),
		Utterances: lo.Map(s.Utterances, func(r UtteranceRecord, _ int) UtteranceRecord {
			return UtteranceRecord{ID: r.ID, Text: r.Text, SpeakerID: r.SpeakerID, Meta: r.Meta.Clone()}
		}),
	}
}

// Validate checks ids, speaker references and that every metadata value
// can be stored losslessly.
func (s *Snapshot) Validate() error {
	if err := s.Meta.Validate(); err != nil {
		return fmt.Errorf("corpus meta: %w", err)
	}
	speakers := make(map[string]struct{}, len(s.Speakers))
	for _, r := range s.Speakers {
		if _, dup := speakers[r.ID]; dup {
			return fmt.Errorf("%w: speaker %q", ErrDuplicateID, r.ID)
		}
		speakers[r.ID] = struct{}{}
		if err := r.Meta.Validate(); err != nil {
			return fmt.Errorf("speaker %q: %w", r.ID, err)
		}
	}
	utts := make(map[string]struct{}, len(s.Utterances))
	for _, r := range s.Utterances {
		if _, dup := utts[r.ID]; dup {
			return fmt.Errorf("%w: utterance %q", ErrDuplicateID, r.ID)
		}
		utts[r.ID] = struct{}{}
		if _, ok := speakers[r.SpeakerID]; !ok {
			return fmt.Errorf("%w: utterance %q speaker %q", ErrUnknownSpeaker, r.ID, r.SpeakerID)
		}
		if err := r.Meta.Validate(); err != nil {
			return fmt.Errorf("utterance %q: %w", r.ID, err)
		}
	}
	return nil
}

// Equal reports content equality: corpus metadata, the speaker set,
// utterances in order with their text, speaker and metadata. Corpus ids are
// not compared.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !s.Meta.Equal(o.Meta) || len(s.Speakers) != len(o.Speakers) || len(s.Utterances) != len(o.Utterances) {
		return false
	}
	theirs := lo.KeyBy(o.Speakers, func(r SpeakerRecord) string { return r.ID })
	for _, r := range s.Speakers {
		x, ok := theirs[r.ID]
		if !ok || !r.Meta.Equal(x.Meta) {
			return false
		}
	}
	for i, r := range s.Utterances {
		x := o.Utterances[i]
		if r.ID != x.ID || r.Text != x.Text || r.SpeakerID != x.SpeakerID || !r.Meta.Equal(x.Meta) {
			return false
		}
	}
	return true
}
