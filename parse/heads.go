package parse

import "sort"

// Link builds linked nodes from parallel per-token slices where heads[i] is
// the index of token i's head. A root has heads[i] == i or heads[i] < 0.
// Children are attached in ascending token order.
func Link(words, tags, deps []string, heads []int) ([]*Node, error) {
	n := len(words)
	if len(tags) != n || len(deps) != n || len(heads) != n {
		return nil, malformed("column lengths differ: words=%d tags=%d deps=%d heads=%d",
			n, len(tags), len(deps), len(heads))
	}
	nodes := make([]*Node, n)
	for i := range words {
		nodes[i] = &Node{Text: words[i], Tag: tags[i], Dep: deps[i]}
	}
	for i, h := range heads {
		if h < 0 || h == i {
			continue
		}
		if h >= n {
			return nil, malformed("token %d head %d out of range", i, h)
		}
		nodes[i].Head = nodes[h]
		nodes[h].Children = append(nodes[h].Children, nodes[i])
	}
	return nodes, nil
}

// FromHeads splits a whole-document parse, given as head indices over the
// document's tokens, into one Sentence per root. Each sentence must cover a
// contiguous span of tokens; indices in the result are sentence-local.
func FromHeads(words, tags, deps []string, heads []int) ([]Sentence, error) {
	if _, err := Link(words, tags, deps, heads); err != nil {
		return nil, err
	}
	n := len(words)

	rootOf := make([]int, n)
	for i := range heads {
		cur := i
		for steps := 0; ; steps++ {
			if steps > n {
				return nil, malformed("cycle reached from token %d", i)
			}
			h := heads[cur]
			if h < 0 || h == cur {
				break
			}
			cur = h
		}
		rootOf[i] = cur
	}

	spans := map[int][2]int{}
	for i, r := range rootOf {
		sp, ok := spans[r]
		if !ok {
			spans[r] = [2]int{i, i}
			continue
		}
		if i != sp[1]+1 {
			return nil, malformed("sentence rooted at %d is not contiguous at token %d", r, i)
		}
		spans[r] = [2]int{sp[0], i}
	}

	ordered := make([][2]int, 0, len(spans))
	for _, sp := range spans {
		ordered = append(ordered, sp)
	}
	sort.Slice(ordered, func(a, b int) bool { return ordered[a][0] < ordered[b][0] })

	out := make([]Sentence, 0, len(ordered))
	for _, sp := range ordered {
		from, to := sp[0], sp[1]+1
		local := make([]int, to-from)
		for i := from; i < to; i++ {
			if heads[i] < 0 || heads[i] == i {
				local[i-from] = i - from
			} else {
				local[i-from] = heads[i] - from
			}
		}
		nodes, err := Link(words[from:to], tags[from:to], deps[from:to], local)
		if err != nil {
			return nil, err
		}
		s, err := Encode(nodes)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
