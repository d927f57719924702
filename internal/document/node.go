// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document holds PubMed detail documents as an untyped element tree.
//
// The remote format is populated inconsistently from record to record, so
// callers navigate the tree with lookups that return nil or false for absent
// nodes instead of binding it to a rigid schema. Every lookup is safe on a
// nil *Node.
package document

import "strings"

// Node is one element of a document. Text is the character data before the
// first child and Tail the character data following the element's end tag
// inside its parent, so mixed content such as "A <i>B</i> C" keeps its order.
type Node struct {
	Name     string            `json:"name"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Tail     string            `json:"tail,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Child returns the first direct child called name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every direct child called name.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Path follows a chain of direct children.
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Find returns the first descendant called name in depth-first document
// order. n itself is not considered.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant called name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.Name == name {
			out = append(out, c)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		fn(c)
		c.walk(fn)
	}
}

// InnerText returns all character data inside n with inline markup removed.
func (n *Node) InnerText() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	b.WriteString(n.Text)
	for _, c := range n.Children {
		c.writeText(b)
		b.WriteString(c.Tail)
	}
}

// TextOf follows names from n and returns the trimmed inner text of the
// node reached. ok is false when the node is missing or its text is blank.
func (n *Node) TextOf(names ...string) (string, bool) {
	target := n.Path(names...)
	if target == nil {
		return "", false
	}
	text := strings.Join(strings.Fields(target.InnerText()), " ")
	return text, text != ""
}

// Attr returns the named attribute, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}
