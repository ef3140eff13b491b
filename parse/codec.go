package parse

// Node is a linked token as produced by a dependency parser. Head is nil
// (or points at the node itself) for the syntactic root.
type Node struct {
	Text     string
	Tag      string
	Dep      string
	Head     *Node
	Children []*Node
}

func (n *Node) isRoot() bool { return n.Head == nil || n.Head == n }

// Encode converts one sentence of linked parser output into its index form.
// Token order follows nodes; child order follows each node's Children.
func Encode(nodes []*Node) (Sentence, error) {
	index := make(map[*Node]int, len(nodes))
	for i, n := range nodes {
		if n == nil {
			return Sentence{}, malformed("node %d is nil", i)
		}
		if _, dup := index[n]; dup {
			return Sentence{}, malformed("node %d appears twice", i)
		}
		index[n] = i
	}

	s := Sentence{Root: -1, Tokens: make([]Token, len(nodes))}
	for i, n := range nodes {
		tok := Token{Text: n.Text, Tag: n.Tag, Dep: n.Dep, Children: make([]int, 0, len(n.Children))}
		if n.isRoot() {
			if s.Root >= 0 {
				return Sentence{}, malformed("tokens %d and %d both have no parent", s.Root, i)
			}
			s.Root = i
		} else {
			p, ok := index[n.Head]
			if !ok {
				return Sentence{}, malformed("token %d head is outside the sentence", i)
			}
			tok.Parent = intPtr(p)
		}
		for _, c := range n.Children {
			ci, ok := index[c]
			if !ok {
				return Sentence{}, malformed("token %d child is outside the sentence", i)
			}
			tok.Children = append(tok.Children, ci)
		}
		s.Tokens[i] = tok
	}
	if s.Root < 0 {
		return Sentence{}, malformed("no root among %d tokens", len(nodes))
	}
	if err := Validate(s); err != nil {
		return Sentence{}, err
	}
	return s, nil
}

// Decode rebuilds linked nodes from s after validating it. The returned
// slice is in token order; the root's Head is nil.
func Decode(s Sentence) ([]*Node, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	nodes := make([]*Node, len(s.Tokens))
	for i, t := range s.Tokens {
		nodes[i] = &Node{Text: t.Text, Tag: t.Tag, Dep: t.Dep}
	}
	for i, t := range s.Tokens {
		if t.Parent != nil {
			nodes[i].Head = nodes[*t.Parent]
		}
		nodes[i].Children = make([]*Node, len(t.Children))
		for j, c := range t.Children {
			nodes[i].Children[j] = nodes[c]
		}
	}
	return nodes, nil
}
