package graph

// NodeKind discriminates the two node flavors of a view.
type NodeKind uint8

const (
	// NodeFile is a scanned file or image; Name holds its absolute path.
	NodeFile NodeKind = iota
	// NodeTag is a tag; Name holds the tag string.
	NodeTag
)

func (k NodeKind) String() string {
	switch k {
	case NodeFile:
		return "file"
	case NodeTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Node identifies a graph node by value: the path for files, the tag string
// for tags. Node values are stable across rebuilds; arena indices are not.
type Node struct {
	Kind NodeKind
	Name string
}

// FileNode returns the node value for a file path.
func FileNode(path string) Node {
	return Node{Kind: NodeFile, Name: path}
}

// TagNode returns the node value for a tag.
func TagNode(name string) Node {
	return Node{Kind: NodeTag, Name: name}
}

func (n Node) String() string {
	return n.Kind.String() + ":" + n.Name
}

// Edge is an ordered pair of rebuild-scoped arena indices into a view's
// node slice. Edges carry no weight or payload; duplicates are permitted
// and act as independent springs in the layout.
type Edge struct {
	From int
	To   int
}
