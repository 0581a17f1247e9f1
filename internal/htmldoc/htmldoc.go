// Package htmldoc exposes parsed markup through a small query interface so
// that extraction logic does not depend on a specific parsing library.
package htmldoc

import (
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Node is a queryable view over an element of a parsed document.
type Node interface {
	// SelectAll returns every descendant matching the CSS selector.
	SelectAll(selector string) []Node

	// SelectOne returns the first descendant matching the CSS selector,
	// or false when there is none.
	SelectOne(selector string) (Node, bool)

	// Text returns the concatenated text content of the node.
	Text() string

	// Attr returns the value of the named attribute.
	Attr(name string) (string, bool)
}

// Parse reads HTML from r and returns the document root.
func Parse(r io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &node{sel: doc.Selection}, nil
}

type node struct {
	sel *goquery.Selection
}

func (n *node) SelectAll(selector string) []Node {
	var nodes []Node
	n.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &node{sel: s})
	})
	return nodes
}

func (n *node) SelectOne(selector string) (Node, bool) {
	s := n.sel.Find(selector).First()
	if s.Length() == 0 {
		return nil, false
	}
	return &node{sel: s}, true
}

func (n *node) Text() string {
	return n.sel.Text()
}

func (n *node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}
