// Package xmltree parses an XML part into an arena of nodes.
//
// Every element, attribute and text chunk becomes one Node in a single slice.
// Nodes keep their qualified name as written in the source ("w:p", "r:embed"),
// a back-reference to their parent and the ordered indices of their children.
// The slice is filled in pre-order, so index order equals document order; the
// contract is checked by Validate rather than assumed by callers.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Kind is the type of a parsed node.
type Kind uint8

const (
	Element Kind = iota
	Attribute
	Text
	EndOfStream
)

func (k Kind) String() string {
	switch k {
	case Element:
		return "element"
	case Attribute:
		return "attribute"
	case Text:
		return "text"
	case EndOfStream:
		return "eof"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// NoNode is returned by lookups that find nothing.
const NoNode = -1

// Node is one parsed unit. Nodes are immutable once Parse returns.
type Node struct {
	Kind   Kind
	Name   string // qualified name; empty for Text and EndOfStream
	Value  string // attribute value or text content
	Parent int    // NoNode for the document element and the end marker

	children []int
}

// Tree owns all nodes of one parse.
type Tree struct {
	nodes []Node
	root  int
}

// ErrNoRoot is returned when the input holds no element at all.
var ErrNoRoot = errors.New("xmltree: no root element")

// ParseBytes parses data into a Tree.
func ParseBytes(data []byte) (*Tree, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads an XML document from r.
func Parse(r io.Reader) (*Tree, error) {
	dec := xml.NewDecoder(r)
	t := &Tree{root: NoNode, nodes: make([]Node, 0, 256)}
	var stack []int

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltree: %w", err)
		}

		switch tk := tok.(type) {
		case xml.StartElement:
			parent := NoNode
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			} else if t.root != NoNode {
				return nil, fmt.Errorf("xmltree: second root element <%s>", qualify(tk.Name))
			}
			idx := t.add(Node{Kind: Element, Name: qualify(tk.Name), Parent: parent})
			if parent == NoNode {
				t.root = idx
			}
			for _, a := range tk.Attr {
				t.add(Node{Kind: Attribute, Name: qualify(a.Name), Value: a.Value, Parent: idx})
			}
			stack = append(stack, idx)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("xmltree: unexpected </%s>", qualify(tk.Name))
			}
			top := stack[len(stack)-1]
			if name := qualify(tk.Name); t.nodes[top].Name != name {
				return nil, fmt.Errorf("xmltree: </%s> closes <%s>", name, t.nodes[top].Name)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			t.add(Node{Kind: Text, Value: string(tk), Parent: parent})
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("xmltree: unclosed <%s>", t.nodes[stack[len(stack)-1]].Name)
	}
	if t.root == NoNode {
		return nil, ErrNoRoot
	}
	t.nodes = append(t.nodes, Node{Kind: EndOfStream, Parent: NoNode})
	return t, nil
}

func (t *Tree) add(n Node) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, n)
	if n.Parent != NoNode {
		p := &t.nodes[n.Parent]
		p.children = append(p.children, idx)
	}
	return idx
}

func qualify(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Root returns the index of the document element.
func (t *Tree) Root() int { return t.root }

// Len returns the number of nodes, including the end marker.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node at index i.
func (t *Tree) Node(i int) *Node { return &t.nodes[i] }

// Children returns the ordered child indices of node i.
func (t *Tree) Children(i int) []int { return t.nodes[i].children }

// ChildElements yields the direct element children of i, optionally
// restricted to one qualified name. The sequence can be ranged over any
// number of times.
func (t *Tree) ChildElements(i int, name string) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, c := range t.nodes[i].children {
			n := &t.nodes[c]
			if n.Kind != Element || (name != "" && n.Name != name) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// FindChild returns the first direct child of i with the given kind and
// name, or NoNode.
func (t *Tree) FindChild(i int, kind Kind, name string) int {
	for _, c := range t.nodes[i].children {
		n := &t.nodes[c]
		if n.Kind == kind && n.Name == name {
			return c
		}
	}
	return NoNode
}

// FindElement returns the first element named name below i in document
// order, or NoNode.
func (t *Tree) FindElement(i int, name string) int {
	for _, c := range t.nodes[i].children {
		n := &t.nodes[c]
		if n.Kind != Element {
			continue
		}
		if n.Name == name {
			return c
		}
		if found := t.FindElement(c, name); found != NoNode {
			return found
		}
	}
	return NoNode
}

// Attr returns the value of attribute name on element i.
func (t *Tree) Attr(i int, name string) (string, bool) {
	a := t.FindChild(i, Attribute, name)
	if a == NoNode {
		return "", false
	}
	return t.nodes[a].Value, true
}

// Text concatenates the direct text children of i.
func (t *Tree) Text(i int) string {
	var sb strings.Builder
	for _, c := range t.nodes[i].children {
		if t.nodes[c].Kind == Text {
			sb.WriteString(t.nodes[c].Value)
		}
	}
	return sb.String()
}

// Validate checks the ordering contract the walkers rely on: parents precede
// their children, children are listed in increasing index order, parent links
// agree with child lists, and the tree ends with exactly one EndOfStream node.
func (t *Tree) Validate() error {
	if t.root == NoNode || len(t.nodes) == 0 {
		return ErrNoRoot
	}
	last := len(t.nodes) - 1
	if t.nodes[last].Kind != EndOfStream {
		return errors.New("xmltree: missing end-of-stream marker")
	}
	for i := range t.nodes[:last] {
		n := &t.nodes[i]
		if n.Kind == EndOfStream {
			return fmt.Errorf("xmltree: end-of-stream marker at %d before end", i)
		}
		if i != t.root && (n.Parent == NoNode || n.Parent >= i) {
			return fmt.Errorf("xmltree: node %d has parent %d out of pre-order", i, n.Parent)
		}
		prev := i
		for _, c := range n.children {
			if c <= prev {
				return fmt.Errorf("xmltree: children of %d not in document order", i)
			}
			if t.nodes[c].Parent != i {
				return fmt.Errorf("xmltree: child %d of %d links to parent %d", c, i, t.nodes[c].Parent)
			}
			prev = c
		}
	}
	return nil
}
