package form

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeStructureNullsEveryBBox(t *testing.T) {
	cand := mustDecode(t, invoiceJSON)
	cand.Elements[0].Value = "ACME"

	out, err := Merge(nil, cand, ModeStructure)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	out.Walk(func(e *Element) {
		if !e.BBox.IsNull() {
			t.Fatalf("bbox of %q not nulled: %+v", e.Title, e.BBox)
		}
	})
	if out.Elements[0].Value != "ACME" {
		t.Fatalf("value not passed through: %v", out.Elements[0].Value)
	}
	if cand.Elements[0].BBox.IsNull() {
		t.Fatalf("candidate was modified")
	}
}

func TestMergeStructureReplacesPrior(t *testing.T) {
	prior := mustDecode(t, invoiceJSON)
	cand := mustDecode(t, `{"title":"New","description":"d","elements":[` + boxed(`{"title":"Only","description":"d","value":null}`) + `]}`)
	out, err := Merge(prior, cand, ModeStructure)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if out.Title != "New" || len(out.Elements) != 1 {
		t.Fatalf("structure not replaced: %+v", out)
	}
}

func TestMergeValueKeepsStructureAndBBoxes(t *testing.T) {
	prior := mustDecode(t, invoiceJSON)
	cand := prior.Clone()
	cand.Walk(func(e *Element) { e.BBox = BBox{} })
	cand.Elements[0].Value = "ACME"
	cand.Elements[3].Value = Option{Label: "USD", Value: "USD"}
	cand.Elements[4].Annotations[0].Annotations[1].Value = 12.5

	out, err := Merge(prior, cand, ModeValue)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !StructurallyEqual(prior, out) {
		t.Fatalf("structure changed:\n%s", StructureDiff(prior, out))
	}
	if *out.Elements[0].BBox[0].X != 10 {
		t.Fatalf("prior bbox lost: %+v", out.Elements[0].BBox)
	}
	if out.Elements[0].Value != "ACME" || out.Elements[4].Annotations[0].Annotations[1].Value != 12.5 {
		t.Fatalf("values not applied: %+v", out.Elements)
	}
	if prior.Elements[0].Value != nil {
		t.Fatalf("prior was modified")
	}
}

func TestMergeValueIsIdempotent(t *testing.T) {
	prior := mustDecode(t, invoiceJSON)
	cand := prior.Clone()
	cand.Elements[0].Value = "ACME"

	first, err := Merge(prior, cand, ModeValue)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	second, err := Merge(first, cand, ModeValue)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("merge not idempotent:\n%s", diff)
	}
}

func TestMergeValueRejectsDivergence(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
		path   string
	}{
		{"renamed field", func(d *Document) { d.Elements[0].Title = "Client" }, "elements[0].title"},
		{"added field", func(d *Document) {
			d.Elements = append(d.Elements, Element{Kind: KindText, Title: "Extra", Description: "d"})
		}, "elements"},
		{"changed kind", func(d *Document) { d.Elements[2].Kind = KindText }, "elements[2].element_name"},
		{"changed options", func(d *Document) { d.Elements[3].Options = d.Elements[3].Options[:1] }, "elements[3].options"},
		{"changed bound", func(d *Document) {
			d.Elements[4].Annotations[0].Annotations[1].MinValue = floatPtr(5)
		}, "elements[4].annotations[0].annotations[1].min_value"},
		{"reordered", func(d *Document) {
			d.Elements[0], d.Elements[1] = d.Elements[1], d.Elements[0]
		}, "elements[0].element_name"},
		{"document title", func(d *Document) { d.Title = "Other" }, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := mustDecode(t, invoiceJSON)
			cand := prior.Clone()
			tt.mutate(cand)

			_, err := Merge(prior, cand, ModeValue)
			de, ok := AsDivergenceError(err)
			if !ok {
				t.Fatalf("expected divergence, got %v", err)
			}
			if de.Path != tt.path {
				t.Fatalf("path = %q, want %q (all: %v)", de.Path, tt.path, de.Paths)
			}
			if de.Diff == "" {
				t.Fatalf("missing diff")
			}
		})
	}
}

func TestMergeValueRepeatInstances(t *testing.T) {
	prior := mustDecode(t, invoiceJSON)
	template := prior.Elements[4].Annotations[0]

	cand := prior.Clone()
	extra := template.Clone()
	extra.Annotations[0].Value = "Widget"
	cand.Elements[4].Annotations = append(cand.Elements[4].Annotations, extra)

	out, err := Merge(prior, cand, ModeValue)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	group := out.Elements[4]
	if len(group.Annotations) != 2 {
		t.Fatalf("instances = %d, want 2", len(group.Annotations))
	}
	if group.Annotations[0].BBox.IsNull() {
		t.Fatalf("existing instance lost its bbox")
	}
	walkElement(&group.Annotations[1], func(e *Element) {
		if !e.BBox.IsNull() {
			t.Fatalf("new instance element %q has a bbox", e.Title)
		}
	})
	if group.Annotations[1].Annotations[0].Value != "Widget" {
		t.Fatalf("new instance value lost")
	}
}

func TestMergeValueRepeatBounds(t *testing.T) {
	prior := mustDecode(t, invoiceJSON)
	template := prior.Elements[4].Annotations[0]

	over := prior.Clone()
	for len(over.Elements[4].Annotations) < 11 {
		over.Elements[4].Annotations = append(over.Elements[4].Annotations, template.Clone())
	}
	_, err := Merge(prior, over, ModeValue)
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Violations[0].Kind != ViolationRepeatCount || !strings.Contains(ve.Violations[0].Message, "max_val 10") {
		t.Fatalf("unexpected violation: %+v", ve.Violations[0])
	}

	under := prior.Clone()
	under.Elements[4].Annotations = []Element{}
	_, err = Merge(prior, under, ModeValue)
	ve, ok = AsValidationError(err)
	if !ok || !strings.Contains(ve.Violations[0].Message, "min_val 1") {
		t.Fatalf("expected min_val violation, got %v", err)
	}
}

func TestMergeValueRepeatFromEmptyPriorDiverges(t *testing.T) {
	prior := mustDecode(t, `{"title":"t","description":"d","elements":[` + boxed(`{"title":"R","description":"d","min_val":0,"max_val":null,"annotations":[]}`) + `]}`)
	cand := prior.Clone()
	cand.Elements[0].Annotations = []Element{{Kind: KindText, Title: "x", Description: "d"}}
	if _, err := Merge(prior, cand, ModeValue); err == nil {
		t.Fatalf("expected divergence")
	}
}

func TestMergeValueListItemsAreValues(t *testing.T) {
	prior := mustDecode(t, `{"title":"t","description":"d","elements":[{"title":"L","description":"d","bbox":[{"x":1,"y":1},{"x":2,"y":2}],"items":null}]}`)
	cand := prior.Clone()
	cand.Elements[0].Items = []Element{{Kind: KindText, Title: "a", Description: "d", Value: "1"}}

	out, err := Merge(prior, cand, ModeValue)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(out.Elements[0].Items) != 1 || out.Elements[0].BBox.IsNull() {
		t.Fatalf("unexpected list merge: %+v", out.Elements[0])
	}
}

func TestMergeValueRequiresPrior(t *testing.T) {
	cand := mustDecode(t, invoiceJSON)
	if _, err := Merge(nil, cand, ModeValue); !errors.Is(err, ErrNoPriorDocument) {
		t.Fatalf("err = %v, want ErrNoPriorDocument", err)
	}
}
