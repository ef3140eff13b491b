package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/maastricht-university/edmo-corpus/parse"
)

// --- Parser (/parse) ---
type ParseReq struct {
	Text string `json:"text"`
}

// ParseToken is one token of a parsed sentence. Head is the sentence-local
// index of the token's head; the root points at itself.
type ParseToken struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
	Dep  string `json:"dep"`
	Head int    `json:"head"`
}

type ParseSentence struct {
	Text   string       `json:"text"`
	Tokens []ParseToken `json:"tokens"`
}

type ParseResp struct {
	Sentences []ParseSentence `json:"sentences"`
}

func (h *HTTP) Parse(ctx context.Context, url, text string) (*ParseResp, error) {
	var out ParseResp
	if err := h.postJSON(ctx, "parse", strings.TrimRight(url, "/")+"/parse", ParseReq{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Nodes links every sentence's tokens into parse nodes, one slice per
// sentence.
func (r *ParseResp) Nodes() ([][]*parse.Node, error) {
	out := make([][]*parse.Node, 0, len(r.Sentences))
	for i, s := range r.Sentences {
		n := len(s.Tokens)
		words := make([]string, n)
		tags := make([]string, n)
		deps := make([]string, n)
		heads := make([]int, n)
		for j, t := range s.Tokens {
			words[j], tags[j], deps[j], heads[j] = t.Text, t.Tag, t.Dep, t.Head
		}
		nodes, err := parse.Link(words, tags, deps, heads)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
		out = append(out, nodes)
	}
	return out, nil
}

// Trees encodes every sentence into its stored form.
func (r *ParseResp) Trees() ([]parse.Sentence, error) {
	nodes, err := r.Nodes()
	if err != nil {
		return nil, err
	}
	out := make([]parse.Sentence, 0, len(nodes))
	for i, ns := range nodes {
		s, err := parse.Encode(ns)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Texts returns the surface text of each sentence.
func (r *ParseResp) Texts() []string {
	out := make([]string, len(r.Sentences))
	for i, s := range r.Sentences {
		out[i] = s.Text
	}
	return out
}
