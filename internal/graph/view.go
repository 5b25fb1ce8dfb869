package graph

import (
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring"
)

// View is one built graph: a node arena, an edge list, and derived indices.
// Views are immutable once built and are rebuilt wholesale from the current
// facts whenever requested — arena indices never survive a rebuild, node
// values do.
type View struct {
	Nodes []Node
	Edges []Edge

	index map[Node]int
	// out and in hold distinct adjacency per arena slot; duplicate edges
	// collapse here but stay intact in Edges.
	out []*roaring.Bitmap
	in  []*roaring.Bitmap
}

func newView(capacity int) *View {
	return &View{
		Nodes: make([]Node, 0, capacity),
		index: make(map[Node]int, capacity),
	}
}

// addNode interns a node value, returning its arena index.
func (v *View) addNode(n Node) int {
	if i, ok := v.index[n]; ok {
		return i
	}
	i := len(v.Nodes)
	v.Nodes = append(v.Nodes, n)
	v.index[n] = i
	v.out = append(v.out, roaring.New())
	v.in = append(v.in, roaring.New())
	return i
}

func (v *View) addEdge(from, to int) {
	v.Edges = append(v.Edges, Edge{From: from, To: to})
	v.out[from].Add(uint32(to))
	v.in[to].Add(uint32(from))
}

// Len returns the node count.
func (v *View) Len() int {
	return len(v.Nodes)
}

// Lookup returns the arena index of a node value.
func (v *View) Lookup(n Node) (int, bool) {
	i, ok := v.index[n]
	return i, ok
}

// NodeAt returns the node value at an arena index.
func (v *View) NodeAt(i int) Node {
	return v.Nodes[i]
}

// Neighbors returns the distinct targets of edges leaving n, in arena order.
func (v *View) Neighbors(n Node) []Node {
	i, ok := v.index[n]
	if !ok {
		return nil
	}
	return v.collect(v.out[i])
}

// Backlinks returns the distinct sources of edges entering n, in arena order.
func (v *View) Backlinks(n Node) []Node {
	i, ok := v.index[n]
	if !ok {
		return nil
	}
	return v.collect(v.in[i])
}

// Members returns the file paths a tag points at. Only meaningful on the
// tag view, where edges run tag→file.
func (v *View) Members(tag string) []string {
	neighbors := v.Neighbors(TagNode(tag))
	paths := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Kind == NodeFile {
			paths = append(paths, n.Name)
		}
	}
	return paths
}

// Degree returns the number of distinct nodes adjacent to n, counting both
// directions.
func (v *View) Degree(n Node) int {
	i, ok := v.index[n]
	if !ok {
		return 0
	}
	return int(v.out[i].GetCardinality() + v.in[i].GetCardinality())
}

func (v *View) collect(bm *roaring.Bitmap) []Node {
	nodes := make([]Node, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		nodes = append(nodes, v.Nodes[it.Next()])
	}
	return nodes
}

// Stats summarizes a view.
type Stats struct {
	Nodes int
	Edges int
}

// Stats returns node and edge counts.
func (v *View) Stats() Stats {
	return Stats{Nodes: len(v.Nodes), Edges: len(v.Edges)}
}

// Fingerprint hashes the node values and edge list. Two views built from
// identical facts fingerprint identically, which is how consumers detect
// structural change without diffing.
func (v *View) Fingerprint() uint64 {
	h := fnv.New64a()
	for _, n := range v.Nodes {
		h.Write([]byte{byte(n.Kind)})
		h.Write([]byte(n.Name))
		h.Write([]byte{0})
	}
	for _, e := range v.Edges {
		h.Write([]byte(strconv.Itoa(e.From)))
		h.Write([]byte{'>'})
		h.Write([]byte(strconv.Itoa(e.To)))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
