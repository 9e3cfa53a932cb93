package pubmed

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Node is a minimal element tree for one article element. Text holds the
// concatenated character data of the element and all its descendants in
// document order, so inline markup such as <i> or <sup> is flattened.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Name = start.Name.Local
	n.Attrs = start.Attr

	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
			text.WriteString(child.Text)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = text.String()
			return nil
		}
	}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildText returns the normalised text of the first child with the given
// name, or "" when there is none.
func (n *Node) ChildText(name string) string {
	if c := n.Child(name); c != nil {
		return normalizeText(c.Text)
	}
	return ""
}

type step struct {
	name  string
	attr  string
	value string
}

// Path is a compiled element path relative to an article element.
//
//	MedlineCitation/PMID                      element text
//	MedlineCitation/PMID/@Version             attribute value
//	ArticleIdList/ArticleId[@IdType=doi]      element filtered by attribute
type Path struct {
	raw   string
	steps []step
	attr  string
}

// MustPath compiles a path expression and panics on syntax errors. Paths are
// package level constants, so a bad one is a programming error.
func MustPath(expr string) Path {
	p, err := ParsePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func ParsePath(expr string) (Path, error) {
	p := Path{raw: expr}
	parts := strings.Split(expr, "/")

	for i, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("empty step in path %q", expr)
		}

		if strings.HasPrefix(part, "@") {
			if i != len(parts)-1 {
				return Path{}, fmt.Errorf("attribute step must be last in path %q", expr)
			}
			p.attr = part[1:]
			continue
		}

		s := step{name: part}
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") || !strings.HasPrefix(part[open+1:], "@") {
				return Path{}, fmt.Errorf("invalid predicate in path %q", expr)
			}
			pred := part[open+2 : len(part)-1]
			key, value, ok := strings.Cut(pred, "=")
			if !ok || key == "" {
				return Path{}, fmt.Errorf("invalid predicate in path %q", expr)
			}
			s.name = part[:open]
			s.attr = key
			s.value = value
		}
		p.steps = append(p.steps, s)
	}

	if len(p.steps) == 0 {
		return Path{}, fmt.Errorf("path %q selects no element", expr)
	}

	return p, nil
}

func (p Path) String() string {
	return p.raw
}

// All returns every element matched by p, in document order.
func (n *Node) All(p Path) []*Node {
	current := []*Node{n}
	for _, s := range p.steps {
		var next []*Node
		for _, c := range current {
			for _, child := range c.Children {
				if child.Name != s.name {
					continue
				}
				if s.attr != "" {
					if v, ok := child.Attr(s.attr); !ok || v != s.value {
						continue
					}
				}
				next = append(next, child)
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Values returns the normalised, non-empty values selected by p: the
// attribute named by a trailing @step, or else the element text.
func (n *Node) Values(p Path) []string {
	var out []string
	for _, m := range n.All(p) {
		var v string
		if p.attr != "" {
			raw, ok := m.Attr(p.attr)
			if !ok {
				continue
			}
			v = normalizeText(raw)
		} else {
			v = normalizeText(m.Text)
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
