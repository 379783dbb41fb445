// Package normalize turns raw PubMed article XML into canonical articles.
//
// A Document is a parsed PubmedArticle element together with its verbatim
// bytes. Fields are read from the node tree with Selectors, which support one
// traversal primitive: the first descendant matching a tag path, optionally
// constrained by an attribute filter.
package normalize

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ArticleElement is the element that delimits one article in an efetch response.
const ArticleElement = "PubmedArticle"

// Node is an element or a text run in a parsed XML tree. Text nodes have an
// empty Name.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

// IsElement reports whether the node is an element rather than a text run.
func (n *Node) IsElement() bool {
	return n != nil && n.Name != ""
}

// Attr returns the value of the named attribute and whether it was present.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// InnerText concatenates every text run below the node in document order.
func (n *Node) InnerText() string {
	if n == nil {
		return ""
	}
	if !n.IsElement() {
		return n.Text
	}
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	for _, c := range n.Children {
		if c.IsElement() {
			c.writeText(sb)
		} else {
			sb.WriteString(c.Text)
		}
	}
}

// Elements returns the element children of the node.
func (n *Node) Elements() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// Document is one article as returned by PubMed: the parsed element tree
// rooted at the article element and the exact bytes it was parsed from.
type Document struct {
	Root *Node
	Raw  []byte
}

// ErrNoArticle is returned when raw XML contains no element at all.
var ErrNoArticle = errors.New("no article element found")

// ParseArticleSet splits an efetch response into one Document per
// PubmedArticle element. A response without articles yields an empty slice.
func ParseArticleSet(data []byte) ([]*Document, error) {
	dec := newDecoder(data)

	var (
		docs  []*Document
		stack []*Node
		start int64
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse article set: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				if t.Name.Local != ArticleElement {
					continue
				}
				start = offset
			}
			node := &Node{Name: t.Name.Local, Attrs: copyAttrs(t.Attr)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			root := stack[0]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				raw := make([]byte, dec.InputOffset()-start)
				copy(raw, data[start:dec.InputOffset()])
				docs = append(docs, &Document{Root: root, Raw: raw})
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Text: string(t)})
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("parse article set: unclosed element %q", stack[len(stack)-1].Name)
	}
	return docs, nil
}

// ParseDocument parses the XML of a single article, such as a stored raw
// document, rooted at its first element.
func ParseDocument(raw []byte) (*Document, error) {
	dec := newDecoder(raw)

	var stack []*Node
	var root *Node

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local, Attrs: copyAttrs(t.Attr)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else if root == nil {
				root = node
			} else {
				return nil, errors.New("parse document: multiple root elements")
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, &Node{Text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, ErrNoArticle
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("parse document: unclosed element %q", stack[len(stack)-1].Name)
	}
	return &Document{Root: root, Raw: bytes.Clone(raw)}, nil
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	// PubMed abstracts occasionally carry HTML entities.
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	return dec
}

func copyAttrs(attrs []xml.Attr) []xml.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]xml.Attr, len(attrs))
	copy(out, attrs)
	return out
}
