// Package svgdoc wraps an SVG document as a mutable tree addressed by node
// id. The id index and each node's kind are computed once at load; mutations
// go through the Document so the index stays authoritative until the final
// serialization. Markup is treated as inert data: no scripts run and no
// external entities are resolved.
package svgdoc

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// ErrUnparsable is returned when the stored markup cannot be parsed. This is
// terminal for a processing run; there is no safe partial rendering.
var ErrUnparsable = errors.New("unparsable document")

// Kind tags what a node is on the map, resolved from its tag name at load
// time rather than re-inspected at every mutation.
type Kind int

const (
	KindOther Kind = iota
	KindPlace      // a place marker (circle), always wrapped in a link
	KindPath       // an edge between two places
	KindLink       // the anchor wrapping a place
	KindText       // a place label
	KindGroup
	KindOverlay // the fog overlay shape
)

func kindForTag(tag string) Kind {
	switch tag {
	case "circle":
		return KindPlace
	case "path":
		return KindPath
	case "a":
		return KindLink
	case "text":
		return KindText
	case "g":
		return KindGroup
	default:
		return KindOther
	}
}

// Node is one addressable element of the document.
type Node struct {
	el   *etree.Element
	kind Kind
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) ID() string { return n.el.SelectAttrValue("id", "") }

// Document owns the parsed tree for exactly one processing run.
type Document struct {
	tree  *etree.Document
	nodes map[string]*Node
}

// Load parses SVG markup and builds the id index. A parse failure is wrapped
// in ErrUnparsable.
func Load(markup string) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromString(markup); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrUnparsable)
	}

	d := &Document{tree: tree, nodes: make(map[string]*Node)}
	d.index(root)
	return d, nil
}

func (d *Document) index(el *etree.Element) {
	if id := el.SelectAttrValue("id", ""); id != "" {
		d.nodes[id] = &Node{el: el, kind: kindForTag(el.Tag)}
	}
	for _, child := range el.ChildElements() {
		d.index(child)
	}
}

// Has reports whether a node with the id is still present.
func (d *Document) Has(id string) bool {
	_, ok := d.nodes[id]
	return ok
}

// Kind returns the tagged kind of a node, or KindOther if absent.
func (d *Document) Kind(id string) Kind {
	if n, ok := d.nodes[id]; ok {
		return n.kind
	}
	return KindOther
}

// Attribute reads an attribute by node id.
func (d *Document) Attribute(id, name string) (string, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	attr := n.el.SelectAttr(name)
	if attr == nil {
		return "", false
	}
	return attr.Value, true
}

// SetAttribute sets or replaces an attribute. Unknown ids are ignored.
func (d *Document) SetAttribute(id, name, value string) {
	if n, ok := d.nodes[id]; ok {
		n.el.CreateAttr(name, value)
	}
}

// RemoveAttribute drops an attribute if present.
func (d *Document) RemoveAttribute(id, name string) {
	if n, ok := d.nodes[id]; ok {
		n.el.RemoveAttr(name)
	}
}

// AppendClass appends a class to the node's class attribute. Appending an
// already-present class is a no-op, so repeated runs never accumulate.
func (d *Document) AppendClass(id, class string) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}
	current := n.el.SelectAttrValue("class", "")
	for _, c := range strings.Fields(current) {
		if c == class {
			return
		}
	}
	if current == "" {
		n.el.CreateAttr("class", class)
		return
	}
	n.el.CreateAttr("class", current+" "+class)
}

// SetText replaces the node's text content.
func (d *Document) SetText(id, text string) {
	if n, ok := d.nodes[id]; ok {
		n.el.SetText(text)
	}
}

// Text returns the node's text content.
func (d *Document) Text(id string) string {
	if n, ok := d.nodes[id]; ok {
		return n.el.Text()
	}
	return ""
}

// RemoveNode removes a node from the tree. Removing a place removes its link
// wrapper instead, taking the label and title inside it along. The index is
// purged of every id in the removed subtree.
func (d *Document) RemoveNode(id string) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}

	target := n.el
	if n.kind == KindPlace {
		if parent := target.Parent(); parent != nil && parent.Tag == "a" {
			target = parent
		}
	}

	parent := target.Parent()
	if parent == nil {
		return
	}
	parent.RemoveChild(target)
	d.unindex(target)
}

func (d *Document) unindex(el *etree.Element) {
	if id := el.SelectAttrValue("id", ""); id != "" {
		delete(d.nodes, id)
	}
	for _, child := range el.ChildElements() {
		d.unindex(child)
	}
}

// CreateElement builds a detached element. Attributes are written in sorted
// key order so serialization stays deterministic.
func (d *Document) CreateElement(tag string, attrs map[string]string) *Node {
	el := etree.NewElement(tag)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el.CreateAttr(k, attrs[k])
	}
	return &Node{el: el, kind: kindForTag(tag)}
}

// AppendChild attaches a detached node under a parent and registers its id.
func (d *Document) AppendChild(parentID string, n *Node) bool {
	parent, ok := d.nodes[parentID]
	if !ok {
		return false
	}
	parent.el.AddChild(n.el)
	if id := n.ID(); id != "" {
		d.nodes[id] = n
	}
	return true
}

// AppendToRoot attaches a detached node as the last child of the root.
func (d *Document) AppendToRoot(n *Node) {
	root := d.tree.Root()
	if root == nil {
		return
	}
	root.AddChild(n.el)
	if id := n.ID(); id != "" {
		d.nodes[id] = n
	}
}

// MarkOverlay retags a node as the fog overlay shape.
func (d *Document) MarkOverlay(id string) {
	if n, ok := d.nodes[id]; ok {
		n.kind = KindOverlay
	}
}

// Serialize writes the mutated tree back to SVG text.
func (d *Document) Serialize() (string, error) {
	out, err := d.tree.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return out, nil
}
