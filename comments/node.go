package comments

import (
	"bufio"
	"html"
	"io"
)

// Attr is a single element attribute. Order is preserved when rendering.
type Attr struct {
	Name  string
	Value string
	// Bare renders the attribute without a value, e.g. async.
	Bare bool
}

// Node is an element in a minimal render tree.
type Node struct {
	Tag      string
	ID       string
	Attrs    []Attr
	Children []*Node
}

// Element returns a new node with the given tag and id.
func Element(tag, id string, children ...*Node) *Node {
	return &Node{Tag: tag, ID: id, Children: children}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value
			n.Attrs[i].Bare = false
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// FindByID returns the first node in n's subtree (n included) with id.
func (n *Node) FindByID(id string) *Node {
	if n == nil || id == "" {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if found := c.FindByID(id); found != nil {
			return found
		}
	}
	return nil
}

// AppendChild adds c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	n.Children = append(n.Children, c)
}

// RemoveFirstChild removes and returns the first child, or nil if n has none.
func (n *Node) RemoveFirstChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	first := n.Children[0]
	n.Children = append(n.Children[:0], n.Children[1:]...)
	return first
}

// Render writes n and its subtree as HTML.
func Render(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	writeNode(bw, n)
	return bw.Flush()
}

func writeNode(w *bufio.Writer, n *Node) {
	if n == nil {
		return
	}
	w.WriteString("<" + n.Tag)
	if n.ID != "" {
		w.WriteString(` id="` + html.EscapeString(n.ID) + `"`)
	}
	for _, a := range n.Attrs {
		w.WriteString(" " + a.Name)
		if !a.Bare {
			w.WriteString(`="` + html.EscapeString(a.Value) + `"`)
		}
	}
	w.WriteString(">")
	for _, c := range n.Children {
		writeNode(w, c)
	}
	w.WriteString("</" + n.Tag + ">")
}
