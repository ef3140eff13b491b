package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/maastricht-university/edmo-corpus/corpus"
	"github.com/maastricht-university/edmo-corpus/meta"
)

// UnknownSpeaker labels segments the transcript did not attribute.
const UnknownSpeaker = "unknown"

// readTranscript accepts either a bare list of segments or an object with a
// "segments" list, the shape the ASR service returns.
func readTranscript(path string) ([]Segment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	var segs []Segment
	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Segments []Segment `json:"segments"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return nil, fmt.Errorf("transcript %s: %w", path, err)
		}
		segs = wrapped.Segments
	} else if err := json.Unmarshal(b, &segs); err != nil {
		return nil, fmt.Errorf("transcript %s: %w", path, err)
	}
	return segs, nil
}

// buildCorpus turns segments into utterances in transcript order. Segments
// without an id are numbered by position.
func buildCorpus(segs []Segment, opts ...corpus.Option) (*corpus.Corpus, error) {
	speakers := map[string]*corpus.Speaker{}
	utts := make([]*corpus.Utterance, 0, len(segs))
	for i, s := range segs {
		name := s.Spk
		if name == "" {
			name = UnknownSpeaker
		}
		spk, ok := speakers[name]
		if !ok {
			spk = corpus.NewSpeaker(name)
			speakers[name] = spk
		}
		id := s.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		u := corpus.NewUtterance(id, s.Text, spk)
		u.AddMeta("start", meta.Float(s.Start))
		u.AddMeta("end", meta.Float(s.End))
		utts = append(utts, u)
	}
	return corpus.New(utts, opts...)
}

func aggregate(segs []Segment) Stats {
	st := Stats{SpeakingShare: map[string]float64{}, Utterances: map[string]int{}}
	if len(segs) == 0 {
		return st
	}
	total := 0.0
	first, last := math.Inf(1), math.Inf(-1)
	type edge struct {
		t     float64
		delta int
	}
	var edges []edge
	for _, s := range segs {
		spk := s.Spk
		if spk == "" {
			spk = UnknownSpeaker
		}
		st.Utterances[spk]++
		d := math.Max(0, s.End-s.Start)
		total += d
		st.SpeakingShare[spk] += d
		first = math.Min(first, s.Start)
		last = math.Max(last, s.End)
		if d > 0 {
			edges = append(edges, edge{t: s.Start, delta: +1}, edge{t: s.End, delta: -1})
		}
	}
	// ends sort before starts at the same instant so touching turns don't overlap
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].t != edges[j].t {
			return edges[i].t < edges[j].t
		}
		return edges[i].delta < edges[j].delta
	})
	active := 0
	overlap := 0.0
	prev := first
	for _, e := range edges {
		if active > 1 {
			overlap += e.t - prev
		}
		active += e.delta
		prev = e.t
	}
	if total > 0 {
		for k := range st.SpeakingShare {
			st.SpeakingShare[k] /= total
		}
	}
	if last > first {
		st.Duration = last - first
		st.OverlapRate = overlap / st.Duration
	}
	return st
}
