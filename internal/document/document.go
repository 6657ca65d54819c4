// Package document provides the generic ordered tree that guest
// configurations are serialized into and parsed from.
//
// Nodes are addressed with a small path grammar relative to a starting
// node:
//
//	memory                  child element text
//	vcpu/@current           attribute of a child element
//	devices/disk[2]/@type   1-based index among same-named siblings
//	@type                   attribute of the node itself
//	metadata/guestforge:os  namespaced element
//
// Set creates any missing elements along the way, appending siblings as
// needed to satisfy an index. Get and the other readers never create
// anything.
package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Document is a hierarchical configuration document with a single root.
type Document struct {
	doc *etree.Document
}

// New creates an empty document whose root element is named root.
func New(root string) *Document {
	doc := etree.NewDocument()
	doc.CreateElement(root)
	return &Document{doc: doc}
}

// Parse reads a document from its textual form.
func Parse(s string) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to parse document: no root element")
	}
	return &Document{doc: doc}, nil
}

// Root returns the root node.
func (d *Document) Root() *Node {
	return &Node{el: d.doc.Root()}
}

// String renders the document as indented XML without a declaration.
func (d *Document) String() (string, error) {
	d.doc.Indent(2)
	s, err := d.doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return s, nil
}

// Node is a single element within a Document.
type Node struct {
	el *etree.Element
}

// Tag returns the element name including any namespace prefix.
func (n *Node) Tag() string {
	return n.el.FullTag()
}

// Children returns the child elements in document order.
func (n *Node) Children() []*Node {
	kids := n.el.ChildElements()
	out := make([]*Node, 0, len(kids))
	for _, k := range kids {
		out = append(out, &Node{el: k})
	}
	return out
}

// Empty reports whether the node has no attributes, children or text.
func (n *Node) Empty() bool {
	return len(n.el.Attr) == 0 &&
		len(n.el.ChildElements()) == 0 &&
		strings.TrimSpace(n.el.Text()) == ""
}

// Detach removes the node from its parent.
func (n *Node) Detach() {
	if p := n.el.Parent(); p != nil {
		p.RemoveChild(n.el)
	}
}

// Node resolves an element path. When create is false a missing element
// yields nil. An empty path resolves to n itself.
func (n *Node) Node(path string, create bool) *Node {
	segs, attr := mustSplit(path)
	if attr != "" {
		panic(fmt.Sprintf("document: element path %q ends in an attribute", path))
	}
	el := walk(n.el, segs, create)
	if el == nil {
		return nil
	}
	return &Node{el: el}
}

// Get returns the text or attribute value at path.
func (n *Node) Get(path string) (string, bool) {
	segs, attr := mustSplit(path)
	el := walk(n.el, segs, false)
	if el == nil {
		return "", false
	}
	if attr != "" {
		a := el.SelectAttr(attr)
		if a == nil {
			return "", false
		}
		return a.Value, true
	}
	return el.Text(), true
}

// Set writes value at path, creating elements as needed.
func (n *Node) Set(path, value string) {
	segs, attr := mustSplit(path)
	el := walk(n.el, segs, true)
	if attr != "" {
		el.CreateAttr(attr, value)
		return
	}
	el.SetText(value)
}

// Present reports whether the element or attribute at path exists.
func (n *Node) Present(path string) bool {
	_, ok := n.Get(path)
	return ok
}

// SetPresent creates or removes the element or attribute at path.
func (n *Node) SetPresent(path string, present bool) {
	if !present {
		n.Remove(path)
		return
	}
	segs, attr := mustSplit(path)
	el := walk(n.el, segs, true)
	if attr != "" && el.SelectAttr(attr) == nil {
		el.CreateAttr(attr, "")
	}
}

// Remove deletes the element or attribute at path and prunes ancestors
// left empty, stopping at n.
func (n *Node) Remove(path string) {
	segs, attr := mustSplit(path)
	el := walk(n.el, segs, false)
	if el == nil {
		return
	}
	if attr != "" {
		el.RemoveAttr(attr)
	} else if el != n.el {
		parent := el.Parent()
		parent.RemoveChild(el)
		el = parent
	}
	for el != n.el && el != nil {
		node := &Node{el: el}
		if !node.Empty() {
			return
		}
		parent := el.Parent()
		parent.RemoveChild(el)
		el = parent
	}
}

// Values returns every value of a repeated element. The final element
// segment of path is the repeated one; a trailing attribute selects which
// attribute of each repetition holds the value.
func (n *Node) Values(path string) []string {
	segs, attr := mustSplit(path)
	if len(segs) == 0 {
		return nil
	}
	last := segs[len(segs)-1]
	parent := walk(n.el, segs[:len(segs)-1], false)
	if parent == nil {
		return nil
	}
	var out []string
	for _, el := range parent.SelectElements(last.tag) {
		if attr == "" {
			out = append(out, el.Text())
			continue
		}
		if a := el.SelectAttr(attr); a != nil {
			out = append(out, a.Value)
		}
	}
	return out
}

// SetValues replaces every repetition of the element at path with one
// element per value.
func (n *Node) SetValues(path string, values []string) {
	segs, attr := mustSplit(path)
	if len(segs) == 0 {
		panic(fmt.Sprintf("document: repeated path %q has no element", path))
	}
	last := segs[len(segs)-1]
	parent := walk(n.el, segs[:len(segs)-1], len(values) > 0)
	if parent == nil {
		return
	}
	for _, el := range parent.SelectElements(last.tag) {
		parent.RemoveChild(el)
	}
	for _, v := range values {
		el := parent.CreateElement(last.tag)
		if attr != "" {
			el.CreateAttr(attr, v)
		} else {
			el.SetText(v)
		}
	}
}

type segment struct {
	tag   string
	index int
}

func walk(el *etree.Element, segs []segment, create bool) *etree.Element {
	for _, s := range segs {
		matches := el.SelectElements(s.tag)
		if len(matches) >= s.index {
			el = matches[s.index-1]
			continue
		}
		if !create {
			return nil
		}
		var child *etree.Element
		for i := len(matches); i < s.index; i++ {
			child = el.CreateElement(s.tag)
		}
		el = child
	}
	return el
}

// mustSplit parses a path into element segments and an optional trailing
// attribute name. Paths are declared statically, so a malformed one is a
// programming error.
func mustSplit(path string) ([]segment, string) {
	path = strings.TrimPrefix(path, "./")
	if path == "" || path == "." {
		return nil, ""
	}

	parts := strings.Split(path, "/")
	var (
		segs []segment
		attr string
	)
	for i, p := range parts {
		if strings.HasPrefix(p, "@") {
			if i != len(parts)-1 || len(p) == 1 {
				panic(fmt.Sprintf("document: malformed path %q", path))
			}
			attr = p[1:]
			break
		}

		seg := segment{tag: p, index: 1}
		if open := strings.IndexByte(p, '['); open >= 0 {
			if !strings.HasSuffix(p, "]") {
				panic(fmt.Sprintf("document: malformed path %q", path))
			}
			idx, err := strconv.Atoi(p[open+1 : len(p)-1])
			if err != nil || idx < 1 {
				panic(fmt.Sprintf("document: malformed index in path %q", path))
			}
			seg = segment{tag: p[:open], index: idx}
		}
		if seg.tag == "" {
			panic(fmt.Sprintf("document: malformed path %q", path))
		}
		segs = append(segs, seg)
	}
	return segs, attr
}
