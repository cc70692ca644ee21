// Package gpml reads and writes GPML, the XML interchange format for
// pathway diagrams. Two format versions are handled: the legacy 2013a
// format is read and written on explicit request; the 2021 format is the
// default for writing. Reading reconstructs the full reference graph
// through an ordered sequence of passes, because element order in a
// document does not match the dependency order the graph requires.
package gpml

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/gopml/gopml/core/errors"
)

// Version identifies a GPML format version by its namespace.
type Version string

const (
	// V2013a is the legacy format version.
	V2013a Version = "GPML2013a"
	// V2021 is the current format version.
	V2021 Version = "GPML2021"

	ns2013a = "http://pathvisio.org/GPML/2013a"
	ns2021  = "http://pathvisio.org/GPML/2021"
)

// Namespace returns the xmlns URI for the version.
func (v Version) Namespace() string {
	if v == V2013a {
		return ns2013a
	}
	return ns2021
}

// Document is a parsed GPML document.
type Document struct {
	root    *xmlquery.Node
	version Version
}

// Element is one document node, exposed to the reader as a flat
// attribute mapping plus a structural child-by-tag view; the reader
// never touches raw markup.
type Element struct {
	node *xmlquery.Node
}

// Parse parses GPML data, checks the root, and detects the format
// version from the root namespace. An unrecognized root is a structural
// error.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &errors.ParseError{Format: "GPML", Message: "malformed XML", Err: err}
	}

	doc := &Document{root: root}
	pathway := doc.Root()
	if pathway == nil || pathway.Name() != "Pathway" {
		return nil, errors.NewParse("GPML", "", "unrecognized root element, want Pathway")
	}

	switch pathway.node.NamespaceURI {
	case ns2013a:
		doc.version = V2013a
	case ns2021, "":
		doc.version = V2021
	default:
		return nil, errors.NewParse("GPML", "Pathway",
			"unknown namespace "+pathway.node.NamespaceURI)
	}
	return doc, nil
}

// Version returns the detected format version.
func (d *Document) Version() Version { return d.version }

// Root returns the document's root element.
func (d *Document) Root() *Element {
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Element{node: child}
		}
	}
	return nil
}

// XPath executes an XPath query against the whole document.
func (d *Document) XPath(expr string) ([]*Element, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, errors.Wrap(err, "invalid xpath")
	}
	nodes, err := xmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, errors.Wrap(err, "xpath query failed")
	}
	result := make([]*Element, len(nodes))
	for i, n := range nodes {
		result[i] = &Element{node: n}
	}
	return result, nil
}

// Name returns the element's tag name, without any namespace prefix.
func (e *Element) Name() string {
	if e.node == nil {
		return ""
	}
	return e.node.Data
}

// Attr returns the value of an attribute, "" when absent. Namespaced
// attributes (e.g. rdf:id) match on the local name.
func (e *Element) Attr(name string) string {
	if e.node == nil {
		return ""
	}
	for _, attr := range e.node.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

// AttrDefault returns the value of an attribute, or the supplied default
// when the document omits it.
func (e *Element) AttrDefault(name, def string) string {
	for _, attr := range e.node.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return def
}

// Attrs returns all attributes as a flat name-to-value mapping.
func (e *Element) Attrs() map[string]string {
	attrs := make(map[string]string, len(e.node.Attr))
	for _, attr := range e.node.Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		attrs[attr.Name.Local] = attr.Value
	}
	return attrs
}

// Text returns the element's own text content, trimmed.
func (e *Element) Text() string {
	if e.node == nil {
		return ""
	}
	return strings.TrimSpace(e.node.InnerText())
}

// Children returns the child elements with the given tag, in document
// order. Tag matching ignores namespace prefixes.
func (e *Element) Children(tag string) []*Element {
	var out []*Element
	for child := e.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == tag {
			out = append(out, &Element{node: child})
		}
	}
	return out
}

// Child returns the first child element with the given tag, or nil.
func (e *Element) Child(tag string) *Element {
	for child := e.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == tag {
			return &Element{node: child}
		}
	}
	return nil
}

// AllChildren returns every child element regardless of tag.
func (e *Element) AllChildren() []*Element {
	var out []*Element
	for child := e.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			out = append(out, &Element{node: child})
		}
	}
	return out
}
