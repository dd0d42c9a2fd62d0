// =============================================================================
// CI Load Engine - Document Tree
// =============================================================================
//
// A generated CI Load is a tree of nodes. Each node is one flat record of the
// EDI target (entry, invoice, line, tariff, ...) holding its fields in
// contract order. Dialects render the same tree; they never reorder it.
//
//   entry
//   ├── dateEvent*, container*, billOfLading*, party*
//   └── invoice*
//       └── line*
//           ├── party* (MF, BY)
//           └── tariff*
//               └── pga*
//
// =============================================================================

package document

// Node names.
const (
	Entry        = "entry"
	DateEvent    = "dateEvent"
	Container    = "container"
	BillOfLading = "billOfLading"
	Party        = "party"
	Invoice      = "invoice"
	Line         = "line"
	Tariff       = "tariff"
	PGA          = "pga"
)

// Field is one encoded value. Width is the contracted field length, which the
// fixed-width dialect pads to. Numeric fields are zero-filled on the left.
type Field struct {
	Name    string
	Value   string
	Width   int
	Numeric bool
}

// Node is one record of the document.
type Node struct {
	Name     string
	Fields   []Field
	Children []*Node
}

// NewNode creates an empty node.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// Add appends a field to the node.
func (n *Node) Add(f Field) *Node {
	n.Fields = append(n.Fields, f)
	return n
}

// Append adds children to the node.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Field returns the value of the first field with the given name.
func (n *Node) Field(name string) (string, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Walk visits the node and its descendants depth-first, parents before
// children. depth is 0 for the receiver.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Find returns every descendant (including the receiver) with the given
// name, in document order.
func (n *Node) Find(name string) []*Node {
	var out []*Node
	n.Walk(func(node *Node, _ int) {
		if node.Name == name {
			out = append(out, node)
		}
	})
	return out
}

// Count returns the number of nodes per name in the subtree.
func (n *Node) Count() map[string]int {
	counts := make(map[string]int)
	n.Walk(func(node *Node, _ int) {
		counts[node.Name]++
	})
	return counts
}
