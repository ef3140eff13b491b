// Package parse encodes dependency parses as index-linked token sequences.
//
// A Sentence never holds pointers between tokens: parents and children are
// integer indices into Sentence.Tokens, so a value serializes without cycles
// and compares with plain equality. Linked Node graphs exist only at the
// edges, as parser input (Encode) or for consumers that want to walk
// pointers (Decode).
package parse

import (
	"errors"
	"fmt"
)

// ErrMalformedTree is returned when a sentence violates the tree invariants.
var ErrMalformedTree = errors.New("malformed tree")

// Token is one word of a parsed sentence.
type Token struct {
	Text string `json:"tok"`
	Tag  string `json:"tag"`
	Dep  string `json:"dep"`
	// Parent is nil only for the root token.
	Parent   *int  `json:"up,omitempty"`
	Children []int `json:"dn"`
}

// Sentence is the index-based dependency tree of one sentence.
type Sentence struct {
	Root   int     `json:"rt"`
	Tokens []Token `json:"toks"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedTree, fmt.Sprintf(format, args...))
}

// Validate checks that s is a single well-formed tree rooted at s.Root:
// indices are in range, the root is the only parentless token, parent links
// reach the root within len(s.Tokens) steps and every child list agrees
// with the parent links.
func Validate(s Sentence) error {
	n := len(s.Tokens)
	if s.Root < 0 || s.Root >= n {
		return malformed("root %d out of range [0,%d)", s.Root, n)
	}
	if s.Tokens[s.Root].Parent != nil {
		return malformed("root %d has parent %d", s.Root, *s.Tokens[s.Root].Parent)
	}

	seen := make([]bool, n)
	for i, tok := range s.Tokens {
		if i != s.Root {
			if tok.Parent == nil {
				return malformed("token %d has no parent but root is %d", i, s.Root)
			}
			if p := *tok.Parent; p < 0 || p >= n {
				return malformed("token %d parent %d out of range", i, p)
			}
		}
		if tok.Children == nil {
			return malformed("token %d has no child list", i)
		}
		for _, c := range tok.Children {
			if c < 0 || c >= n {
				return malformed("token %d child %d out of range", i, c)
			}
			if c == s.Root {
				return malformed("root %d listed as child of %d", c, i)
			}
			if seen[c] {
				return malformed("token %d listed as a child twice", c)
			}
			seen[c] = true
			if p := s.Tokens[c].Parent; p == nil || *p != i {
				return malformed("token %d listed as child of %d but its parent differs", c, i)
			}
		}
	}

	for i := range s.Tokens {
		if i != s.Root && !seen[i] {
			return malformed("token %d missing from its parent's children", i)
		}
		cur, steps := i, 0
		for cur != s.Root {
			if steps >= n {
				return malformed("cycle reached from token %d", i)
			}
			cur = *s.Tokens[cur].Parent
			steps++
		}
	}
	return nil
}

// Walk visits tokens depth-first from the root, children in stored order.
// It stops early when fn returns false. s must be valid.
func (s Sentence) Walk(fn func(idx, depth int) bool) {
	type frame struct{ idx, depth int }
	stack := []frame{{s.Root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.idx, f.depth) {
			return
		}
		kids := s.Tokens[f.idx].Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], f.depth + 1})
		}
	}
}

// Words returns the surface forms of s in token order.
func (s Sentence) Words() []string {
	out := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.Text
	}
	return out
}

// Clone deep-copies s.
func (s Sentence) Clone() Sentence {
	out := Sentence{Root: s.Root, Tokens: make([]Token, len(s.Tokens))}
	for i, t := range s.Tokens {
		cp := t
		if t.Parent != nil {
			p := *t.Parent
			cp.Parent = &p
		}
		if t.Children != nil {
			cp.Children = append([]int{}, t.Children...)
		}
		out.Tokens[i] = cp
	}
	return out
}

func intPtr(i int) *int { return &i }
