// Package corpus models a conversational corpus: speakers, the utterances
// they produce and free-form metadata on each, persisted through
// interchangeable storage backends.
package corpus

import (
	"context"
	"fmt"
	"iter"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edmo-corpus/meta"
)

var log = logrus.WithField("component", "corpus")

// State is the backend association of a Corpus handle.
type State int

const (
	Unbound State = iota
	Transient
	Durable
)

func (s State) String() string {
	switch s {
	case Transient:
		return "transient"
	case Durable:
		return "durable"
	}
	return "unbound"
}

// Binding reports where a handle's content came from or was last written.
type Binding struct {
	State State
	Type  StorageType
	ID    string
}

// Corpus owns a set of speakers and an insertion-ordered set of utterances.
// A Corpus is not safe for concurrent mutation.
type Corpus struct {
	binding Binding
	backend Backend

	meta       meta.Map
	speakers   map[string]*Speaker
	spkOrder   []*Speaker
	utterances map[string]*Utterance
	uttOrder   []*Utterance
}

type options struct {
	speakers []*Speaker
	meta     meta.Map
}

// Option configures New.
type Option func(*options)

// WithSpeakers adds speakers to the corpus beyond those its utterances
// reference.
func WithSpeakers(spks ...*Speaker) Option {
	return func(o *options) { o.speakers = append(o.speakers, spks...) }
}

// WithMeta sets the corpus-level metadata to a copy of m.
func WithMeta(m meta.Map) Option {
	return func(o *options) { o.meta = m }
}

// New builds a transient corpus from utts, keeping their order. The speaker
// set is the explicit speakers plus every speaker an utterance references.
// Nothing is returned on error.
func New(utts []*Utterance, opts ...Option) (*Corpus, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	c := empty()
	if o.meta != nil {
		c.meta = o.meta.Clone()
	}
	for _, s := range o.speakers {
		if s == nil {
			return nil, fmt.Errorf("%w: nil speaker", ErrUnknownSpeaker)
		}
		if err := c.addSpeaker(s); err != nil {
			return nil, err
		}
	}
	for i, u := range utts {
		if u == nil {
			return nil, fmt.Errorf("corpus: utterance %d is nil", i)
		}
		if _, dup := c.utterances[u.id]; dup {
			return nil, fmt.Errorf("%w: utterance %q", ErrDuplicateID, u.id)
		}
		if u.speaker == nil {
			return nil, fmt.Errorf("%w: utterance %q has no speaker", ErrUnknownSpeaker, u.id)
		}
		if err := c.addSpeaker(u.speaker); err != nil {
			return nil, err
		}
		c.utterances[u.id] = u
		c.uttOrder = append(c.uttOrder, u)
	}
	c.binding = Binding{State: Transient, Type: StorageMem}
	return c, nil
}

func empty() *Corpus {
	return &Corpus{
		meta:       meta.Map{},
		speakers:   map[string]*Speaker{},
		utterances: map[string]*Utterance{},
	}
}

// addSpeaker accepts s once; the same id on a different object is ambiguous.
func (c *Corpus) addSpeaker(s *Speaker) error {
	if have, ok := c.speakers[s.id]; ok {
		if have != s {
			return fmt.Errorf("%w: speaker %q names two different speakers", ErrDuplicateID, s.id)
		}
		return nil
	}
	c.speakers[s.id] = s
	c.spkOrder = append(c.spkOrder, s)
	return nil
}

// FromSnapshot builds an unbound corpus with fresh objects holding copies
// of snap's content.
func FromSnapshot(snap *Snapshot) (*Corpus, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	c := empty()
	c.meta = snap.Meta.Clone()
	if c.meta == nil {
		c.meta = meta.Map{}
	}
	for _, r := range snap.Speakers {
		s := NewSpeaker(r.ID)
		if r.Meta != nil {
			s.meta = r.Meta.Clone()
		}
		c.speakers[s.id] = s
		c.spkOrder = append(c.spkOrder, s)
	}
	for _, r := range snap.Utterances {
		u := NewUtterance(r.ID, r.Text, c.speakers[r.SpeakerID])
		if r.Meta != nil {
			u.meta = r.Meta.Clone()
		}
		c.utterances[u.id] = u
		c.uttOrder = append(c.uttOrder, u)
	}
	return c, nil
}

// Binding reports the handle's backend association.
func (c *Corpus) Binding() Binding { return c.binding }

// ID is the corpus id of a bound durable handle, empty otherwise.
func (c *Corpus) ID() string { return c.binding.ID }

func (c *Corpus) AddMeta(key string, v meta.Value) { c.meta[key] = v.Clone() }

func (c *Corpus) GetMeta(key string) (meta.Value, bool) {
	v, ok := c.meta[key]
	return v.Clone(), ok
}

// Meta returns a copy of the corpus-level metadata.
func (c *Corpus) Meta() meta.Map { return c.meta.Clone() }

// IterUtterances yields utterances in insertion order. Each call starts a
// fresh pass.
func (c *Corpus) IterUtterances() iter.Seq[*Utterance] {
	return func(yield func(*Utterance) bool) {
		for _, u := range c.uttOrder {
			if !yield(u) {
				return
			}
		}
	}
}

// IterSpeakers yields speakers in the order they joined the corpus.
func (c *Corpus) IterSpeakers() iter.Seq[*Speaker] {
	return func(yield func(*Speaker) bool) {
		for _, s := range c.spkOrder {
			if !yield(s) {
				return
			}
		}
	}
}

// Utterances returns the utterances in insertion order.
func (c *Corpus) Utterances() []*Utterance { return append([]*Utterance(nil), c.uttOrder...) }

func (c *Corpus) Utterance(id string) (*Utterance, bool) {
	u, ok := c.utterances[id]
	return u, ok
}

func (c *Corpus) Speaker(id string) (*Speaker, bool) {
	s, ok := c.speakers[id]
	return s, ok
}

// SpeakerIDs lists speaker ids in the order they joined the corpus.
func (c *Corpus) SpeakerIDs() []string {
	return lo.Map(c.spkOrder, func(s *Speaker, _ int) string { return s.id })
}

func (c *Corpus) NumUtterances() int { return len(c.uttOrder) }
func (c *Corpus) NumSpeakers() int   { return len(c.spkOrder) }

// Snapshot copies the corpus content into its persisted form. The copy
// shares no storage with c.
func (c *Corpus) Snapshot() *Snapshot {
	return &Snapshot{
		ID:   c.binding.ID,
		Meta: c.meta.Clone(),
		Speakers: lo.Map(c.spkOrder, func(s *Speaker, _ int) SpeakerRecord {
			return SpeakerRecord{ID: s.id, Meta: s.meta.Clone()}
		}),
		Utterances: lo.Map(c.uttOrder, func(u *Utterance, _ int) UtteranceRecord {
			return UtteranceRecord{ID: u.id, Text: u.text, SpeakerID: u.speakerID, Meta: u.meta.Clone()}
		}),
	}
}

// Equal reports whether a and b hold equal content.
func Equal(a, b *Corpus) bool {
	return a.Snapshot().Equal(b.Snapshot())
}

// Dump writes the corpus to the durable backend under basePath/id and
// returns a new handle bound to the written copy. c stays valid and
// mutable; later changes to c do not reach the durable copy.
func (c *Corpus) Dump(ctx context.Context, id, basePath string) (*Corpus, error) {
	be, err := OpenBackend(StorageDB, basePath)
	if err != nil {
		return nil, err
	}
	return c.DumpTo(ctx, be, id)
}

// DumpTo writes the corpus to be under id. Unsupported metadata is
// reported before anything is written.
func (c *Corpus) DumpTo(ctx context.Context, be Backend, id string) (*Corpus, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	snap := c.Snapshot()
	snap.ID = id
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if err := be.Dump(ctx, snap); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"corpus_id":  id,
		"storage":    be.Type(),
		"speakers":   len(snap.Speakers),
		"utterances": len(snap.Utterances),
	}).Debug("corpus dumped")

	out, err := FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	out.bind(be, id)
	return out, nil
}

type openOptions struct {
	basePath string
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithBasePath sets the directory durable corpora live under. Default ".".
func WithBasePath(p string) OpenOption {
	return func(o *openOptions) { o.basePath = p }
}

// Open loads the corpus stored under id in the backend selected by t.
func Open(ctx context.Context, id string, t StorageType, opts ...OpenOption) (*Corpus, error) {
	o := openOptions{basePath: "."}
	for _, opt := range opts {
		opt(&o)
	}
	be, err := OpenBackend(t, o.basePath)
	if err != nil {
		return nil, err
	}
	return OpenFrom(ctx, be, id)
}

// OpenFrom loads the corpus stored under id in be. Every call returns a
// distinct handle with equal content.
func OpenFrom(ctx context.Context, be Backend, id string) (*Corpus, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	snap, err := be.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := FromSnapshot(snap)
	if err != nil {
		return nil, &StorageError{Op: "load", CorpusID: id, Err: err}
	}
	c.bind(be, id)
	log.WithFields(logrus.Fields{
		"corpus_id":  id,
		"storage":    be.Type(),
		"utterances": c.NumUtterances(),
	}).Debug("corpus opened")
	return c, nil
}

func (c *Corpus) bind(be Backend, id string) {
	c.backend = be
	state := Transient
	if be.Type() == StorageDB {
		state = Durable
	}
	c.binding = Binding{State: state, Type: be.Type(), ID: id}
}

// Save rewrites the stored copy this handle is bound to with its current
// content.
func (c *Corpus) Save(ctx context.Context) error {
	if c.backend == nil {
		return ErrUnbound
	}
	snap := c.Snapshot()
	if err := snap.Validate(); err != nil {
		return err
	}
	return c.backend.Dump(ctx, snap)
}

// Drop deletes the stored copy this handle is bound to. The handle keeps
// its in-memory content and becomes transient.
func (c *Corpus) Drop(ctx context.Context) error {
	if c.backend == nil {
		return ErrUnbound
	}
	if err := c.backend.Delete(ctx, c.binding.ID); err != nil {
		return err
	}
	log.WithField("corpus_id", c.binding.ID).Info("corpus dropped")
	c.backend = nil
	c.binding = Binding{State: Transient, Type: StorageMem}
	return nil
}
