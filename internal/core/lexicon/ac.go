package lexicon

// automaton is a small Aho-Corasick matcher over bytes. Patterns are
// already normalized lowercase UTF-8, so a byte alphabet is enough and a
// fixed 256-way table per node keeps the hot loop free of map lookups
type automaton struct {
	nodes []acNode
}

type acNode struct {
	// next[b] = child state or -1
	next [256]int32
	fail int32
	out  []int // pattern ids ending here
}

func newNode() acNode {
	var n acNode
	for i := range n.next {
		n.next[i] = -1
	}
	return n
}

func newAutomaton() *automaton {
	return &automaton{nodes: []acNode{newNode()}}
}

// add inserts pat under id
func (a *automaton) add(pat string, id int) {
	if pat == "" {
		return
	}
	state := int32(0)
	for i := 0; i < len(pat); i++ {
		b := pat[i]
		nxt := a.nodes[state].next[b]
		if nxt == -1 {
			nxt = int32(len(a.nodes))
			a.nodes[state].next[b] = nxt
			a.nodes = append(a.nodes, newNode())
		}
		state = nxt
	}
	a.nodes[state].out = append(a.nodes[state].out, id)
}

// build computes failure links breadth first and merges outputs
func (a *automaton) build() {
	q := make([]int32, 0, len(a.nodes))
	for b := range 256 {
		if s := a.nodes[0].next[b]; s != -1 {
			a.nodes[s].fail = 0
			q = append(q, s)
		}
	}
	for qi := 0; qi < len(q); qi++ {
		r := q[qi]
		for b := range 256 {
			s := a.nodes[r].next[b]
			if s == -1 {
				continue
			}
			q = append(q, s)

			f := a.nodes[r].fail
			for f != 0 && a.nodes[f].next[b] == -1 {
				f = a.nodes[f].fail
			}
			if nxt := a.nodes[f].next[b]; nxt != -1 && nxt != s {
				a.nodes[s].fail = nxt
			} else {
				a.nodes[s].fail = 0
			}
			a.nodes[s].out = append(a.nodes[s].out, a.nodes[a.nodes[s].fail].out...)
		}
	}
}

// scan calls fn(end, id) for every match; end is exclusive
func (a *automaton) scan(text string, fn func(end, id int)) {
	state := int32(0)
	for i := 0; i < len(text); i++ {
		b := text[i]
		for state != 0 && a.nodes[state].next[b] == -1 {
			state = a.nodes[state].fail
		}
		if nxt := a.nodes[state].next[b]; nxt != -1 {
			state = nxt
		}
		for _, id := range a.nodes[state].out {
			fn(i+1, id)
		}
	}
}
