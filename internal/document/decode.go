// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// DecodeError reports a response body that could not be parsed into the
// expected shape.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseXML builds a tree from an XML document. Directives, comments, and
// processing instructions are dropped. HTML entities are accepted because
// PubMed abstracts and affiliations occasionally carry them.
func ParseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DecodeError{Format: "xml", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &DecodeError{Format: "xml", Err: errors.New("multiple root elements")}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			if len(cur.Children) == 0 {
				cur.Text += string(t)
			} else {
				last := cur.Children[len(cur.Children)-1]
				last.Tail += string(t)
			}
		}
	}

	if root == nil {
		return nil, &DecodeError{Format: "xml", Err: errors.New("no root element")}
	}
	if len(stack) != 0 {
		return nil, &DecodeError{Format: "xml", Err: fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name)}
	}
	return root, nil
}
