package parse

import (
	"fmt"

	"github.com/maastricht-university/edmo-corpus/meta"
)

// Reserved utterance metadata keys.
const (
	KeyParsed    = "parsed"
	KeySentences = "sentences"
)

// ToValue encodes sentences as metadata: a list of {rt, toks} maps whose
// tokens carry tok, tag, dep, dn and, except for the root, up.
func ToValue(sents []Sentence) meta.Value {
	out := make([]meta.Value, len(sents))
	for i, s := range sents {
		out[i] = sentenceValue(s)
	}
	return meta.List(out...)
}

func sentenceValue(s Sentence) meta.Value {
	toks := make([]meta.Value, len(s.Tokens))
	for i, t := range s.Tokens {
		m := meta.Map{
			"tok": meta.String(t.Text),
			"tag": meta.String(t.Tag),
			"dep": meta.String(t.Dep),
			"dn":  meta.Ints(t.Children...),
		}
		if t.Parent != nil {
			m["up"] = meta.Int(int64(*t.Parent))
		}
		toks[i] = meta.Object(m)
	}
	return meta.Object(meta.Map{
		"rt":   meta.Int(int64(s.Root)),
		"toks": meta.List(toks...),
	})
}

// FromValue decodes and validates sentences stored by ToValue.
func FromValue(v meta.Value) ([]Sentence, error) {
	if v.Kind() != meta.KindList {
		return nil, malformed("parsed value is %s, want list", v.Kind())
	}
	out := make([]Sentence, 0, v.Len())
	for i, sv := range v.List() {
		s, err := sentenceFromValue(sv)
		if err != nil {
			return nil, malformed("sentence %d: %v", i, err)
		}
		if err := Validate(s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func sentenceFromValue(v meta.Value) (Sentence, error) {
	rt, ok := v.Get("rt")
	if !ok || rt.Kind() != meta.KindInt {
		return Sentence{}, fmt.Errorf("missing int rt")
	}
	toks, ok := v.Get("toks")
	if !ok || toks.Kind() != meta.KindList {
		return Sentence{}, fmt.Errorf("missing toks list")
	}
	s := Sentence{Root: int(rt.Int()), Tokens: make([]Token, toks.Len())}
	for i, tv := range toks.List() {
		var t Token
		var err error
		if t.Text, err = stringField(tv, "tok"); err != nil {
			return Sentence{}, fmt.Errorf("token %d: %v", i, err)
		}
		if t.Tag, err = stringField(tv, "tag"); err != nil {
			return Sentence{}, fmt.Errorf("token %d: %v", i, err)
		}
		if t.Dep, err = stringField(tv, "dep"); err != nil {
			return Sentence{}, fmt.Errorf("token %d: %v", i, err)
		}
		if up, ok := tv.Get("up"); ok && !up.IsNull() {
			if up.Kind() != meta.KindInt {
				return Sentence{}, fmt.Errorf("token %d: up is %s", i, up.Kind())
			}
			t.Parent = intPtr(int(up.Int()))
		}
		dn, ok := tv.Get("dn")
		if !ok || dn.Kind() != meta.KindList {
			return Sentence{}, fmt.Errorf("token %d: missing dn list", i)
		}
		t.Children = make([]int, 0, dn.Len())
		for _, c := range dn.List() {
			if c.Kind() != meta.KindInt {
				return Sentence{}, fmt.Errorf("token %d: child is %s", i, c.Kind())
			}
			t.Children = append(t.Children, int(c.Int()))
		}
		s.Tokens[i] = t
	}
	return s, nil
}

func stringField(v meta.Value, key string) (string, error) {
	f, ok := v.Get(key)
	if !ok || f.Kind() != meta.KindString {
		return "", fmt.Errorf("missing string %s", key)
	}
	return f.Str(), nil
}
