package form

import (
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// shape is the structural projection of an element: everything except
// values, bboxes and list items.
type shape struct {
	Kind        Kind
	Title       string
	Description string
	Options     []Option
	Multi       bool
	MaxLength   *int
	MinValue    *float64
	MaxValue    *float64
	Allowed     []string
	MaxMB       *float64
	Collapsible bool
	Collapsed   bool
	MinVal      *int
	MaxVal      *int
	Order       *int
	Optional    bool
	Columns     []string
	Children    []shape
	Rows        [][]shape
}

type docShape struct {
	Title       string
	Description string
	Elements    []shape
}

func shapeOf(e Element) shape {
	s := shape{
		Kind:        e.Kind,
		Title:       e.Title,
		Description: e.Description,
		Options:     e.Options,
		Multi:       e.Multi,
		MaxLength:   e.MaxLength,
		MinValue:    e.MinValue,
		MaxValue:    e.MaxValue,
		Allowed:     e.Allowed,
		MaxMB:       e.MaxMB,
		Collapsible: e.Collapsible,
		Collapsed:   e.Collapsed,
		MinVal:      e.MinVal,
		MaxVal:      e.MaxVal,
		Order:       e.Order,
		Optional:    e.Optional,
		Columns:     e.Columns,
	}
	for _, c := range e.Annotations {
		s.Children = append(s.Children, shapeOf(c))
	}
	for _, row := range e.Rows {
		cells := make([]shape, 0, len(row))
		for _, c := range row {
			cells = append(cells, shapeOf(c))
		}
		s.Rows = append(s.Rows, cells)
	}
	return s
}

func shapeOfDocument(d *Document) docShape {
	out := docShape{Title: d.Title, Description: d.Description}
	for _, e := range d.Elements {
		out.Elements = append(out.Elements, shapeOf(e))
	}
	return out
}

// StructureDiff returns a human-readable diff of the structures of a and b,
// or "" when they are structurally identical. Repeat instance counts are
// part of the projection.
func StructureDiff(a, b *Document) string {
	if a == nil || b == nil {
		if a == b {
			return ""
		}
		return "one side has no document"
	}
	return cmp.Diff(shapeOfDocument(a), shapeOfDocument(b))
}

// comparer walks a prior and a candidate document side by side and records
// structural divergences and repeat-count violations.
type comparer struct {
	divergences []string
	violations  []Violation
}

func (c *comparer) diverge(path string) {
	c.divergences = append(c.divergences, path)
}

func (c *comparer) document(prior, cand *Document) {
	if prior.Title != cand.Title {
		c.diverge("title")
	}
	if prior.Description != cand.Description {
		c.diverge("description")
	}
	c.elements("elements", prior.Elements, cand.Elements)
}

func (c *comparer) elements(path string, prior, cand []Element) {
	if len(prior) != len(cand) {
		c.diverge(path)
		return
	}
	for i := range prior {
		c.element(indexPath(path, i), prior[i], cand[i])
	}
}

func (c *comparer) element(path string, prior, cand Element) {
	if prior.Kind != cand.Kind {
		c.diverge(joinPath(path, "element_name"))
		return
	}
	checks := []struct {
		key  string
		a, b any
	}{
		{"title", prior.Title, cand.Title},
		{"description", prior.Description, cand.Description},
		{"options", prior.Options, cand.Options},
		{"multi", prior.Multi, cand.Multi},
		{"max_length", prior.MaxLength, cand.MaxLength},
		{"min_value", prior.MinValue, cand.MinValue},
		{"max_value", prior.MaxValue, cand.MaxValue},
		{"allowed", prior.Allowed, cand.Allowed},
		{"max_mb", prior.MaxMB, cand.MaxMB},
		{"collapsible", prior.Collapsible, cand.Collapsible},
		{"collapsed", prior.Collapsed, cand.Collapsed},
		{"min_val", prior.MinVal, cand.MinVal},
		{"max_val", prior.MaxVal, cand.MaxVal},
		{"order", prior.Order, cand.Order},
		{"optional", prior.Optional, cand.Optional},
		{"columns", prior.Columns, cand.Columns},
	}
	for _, ch := range checks {
		if !sameAttr(ch.a, ch.b) {
			c.diverge(joinPath(path, ch.key))
		}
	}

	switch prior.Kind {
	case KindSection, KindWizard:
		c.elements(joinPath(path, "annotations"), prior.Annotations, cand.Annotations)
	case KindRepeat:
		c.repeat(path, prior, cand)
	case KindTable:
		rowsPath := joinPath(path, "rows")
		if len(prior.Rows) != len(cand.Rows) {
			c.diverge(rowsPath)
			return
		}
		for i := range prior.Rows {
			c.elements(indexPath(rowsPath, i), prior.Rows[i], cand.Rows[i])
		}
	}
}

// repeat compares instances positionally. Instances beyond the prior count
// must match the first prior instance.
func (c *comparer) repeat(path string, prior, cand Element) {
	n := len(cand.Annotations)
	if prior.MinVal != nil && n < *prior.MinVal {
		c.violations = append(c.violations, Violation{
			Path:    joinPath(path, "annotations"),
			Kind:    ViolationRepeatCount,
			Message: fmt.Sprintf("%d instances is below min_val %d", n, *prior.MinVal),
		})
	}
	if prior.MaxVal != nil && n > *prior.MaxVal {
		c.violations = append(c.violations, Violation{
			Path:    joinPath(path, "annotations"),
			Kind:    ViolationRepeatCount,
			Message: fmt.Sprintf("%d instances exceeds max_val %d", n, *prior.MaxVal),
		})
	}
	base := joinPath(path, "annotations")
	for i, inst := range cand.Annotations {
		switch {
		case i < len(prior.Annotations):
			c.element(indexPath(base, i), prior.Annotations[i], inst)
		case len(prior.Annotations) > 0:
			c.element(indexPath(base, i), prior.Annotations[0], inst)
		default:
			c.diverge(indexPath(base, i))
		}
	}
}

func sameAttr(a, b any) bool {
	switch x := a.(type) {
	case []Option:
		y := b.([]Option)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case []string:
		y := b.([]string)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// StructurallyEqual reports whether a and b agree on everything but values,
// bboxes and list items, with repeat instance counts allowed to differ.
func StructurallyEqual(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	c := &comparer{}
	c.document(a, b)
	return len(c.divergences) == 0
}
