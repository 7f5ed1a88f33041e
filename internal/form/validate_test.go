package form

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validateText(t *testing.T, text string, opts Options) (*Document, *ValidationError) {
	t.Helper()
	var tree any
	require.NoError(t, json.Unmarshal([]byte(text), &tree))
	doc, err := Validate(tree, opts)
	if err == nil {
		return doc, nil
	}
	ve, ok := AsValidationError(err)
	require.True(t, ok, "unexpected error type %T", err)
	return nil, ve
}

func hasViolation(ve *ValidationError, path string, kind ViolationKind) bool {
	for _, v := range ve.Violations {
		if v.Path == path && v.Kind == kind {
			return true
		}
	}
	return false
}

func TestValidateAcceptsFixture(t *testing.T) {
	doc, ve := validateText(t, invoiceJSON, Options{})
	require.Nil(t, ve)
	require.Len(t, doc.Elements, 5)

	require.Equal(t, KindText, doc.Elements[0].Kind)
	require.Equal(t, 10.0, *doc.Elements[0].BBox[0].X)
	require.Equal(t, KindDate, doc.Elements[1].Kind)
	require.True(t, doc.Elements[1].BBox.IsNull())
	require.Equal(t, KindBoolean, doc.Elements[2].Kind)
	require.Equal(t, KindRadio, doc.Elements[3].Kind)
	require.Equal(t, []Option{{Label: "EUR", Value: "EUR"}, {Label: "USD", Value: "USD"}}, doc.Elements[3].Options)

	lines := doc.Elements[4]
	require.Equal(t, KindRepeat, lines.Kind)
	require.Equal(t, 1, *lines.MinVal)
	require.Equal(t, 10, *lines.MaxVal)
	require.Equal(t, KindSection, lines.Annotations[0].Kind)
	require.Equal(t, KindNumber, lines.Annotations[0].Annotations[1].Kind)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	text := `{
	  "title": "",
	  "description": "d",
	  "extra": 1,
	  "elements": [
	    {"title": "A", "description": "a", "value": 5, "max_length": 3},
	    {"title": "B", "description": "b", "options": ["x", "y"], "value": "z"},
	    {"description": "c", "value": null},
	    {"title": "D", "description": "d", "min_value": 10, "max_value": 1, "value": null},
	    {"title": "E", "description": "e", "bbox": [{"x": 1}], "value": null}
	  ]
	}`
	_, ve := validateText(t, text, Options{})
	require.NotNil(t, ve)

	want := []struct {
		path string
		kind ViolationKind
	}{
		{"title", ViolationEmpty},
		{"extra", ViolationUnknownField},
		{"elements[0].value", ViolationType},
		{"elements[1].value", ViolationOption},
		{"elements[2].title", ViolationMissing},
		{"elements[3].min_value", ViolationBounds},
		{"elements[4].bbox", ViolationBBox},
	}
	for _, w := range want {
		if !hasViolation(ve, w.path, w.kind) {
			t.Fatalf("missing %s violation at %s; got %+v", w.kind, w.path, ve.Violations)
		}
	}
}

func TestValidateOptionPath(t *testing.T) {
	text := `{"title":"t","description":"d","elements":[
	  {"title":"G","description":"g","annotations":[
	    {"title":"S","description":"s","options":[{"label":"A","value":"a"},{"label":"","value":"b"}],"multi":false,"value":null}
	  ]}
	]}`
	_, ve := validateText(t, text, Options{})
	require.NotNil(t, ve)
	require.True(t, hasViolation(ve, "elements[0].annotations[0].options[1].label", ViolationEmpty), "%+v", ve.Violations)
}

func TestValidateSelectValues(t *testing.T) {
	base := `{"title":"t","description":"d","elements":[` + boxed(`{"title":"S","description":"s","options":[{"label":"Red","value":"r"},{"label":"Two","value":2}],"multi":%s,"value":%s}`) + `]}`
	tests := []struct {
		name  string
		multi string
		value string
		ok    bool
		want  any
	}{
		{"single by value", "false", `"r"`, true, Option{Label: "Red", Value: "r"}},
		{"single by label", "false", `"Red"`, true, Option{Label: "Red", Value: "r"}},
		{"single numeric", "false", `2`, true, Option{Label: "Two", Value: 2.0}},
		{"single by object", "false", `{"label":"Two","value":2}`, true, Option{Label: "Two", Value: 2.0}},
		{"multi list", "true", `["r", 2]`, true, []Option{{Label: "Red", Value: "r"}, {Label: "Two", Value: 2.0}}},
		{"multi needs list", "true", `"r"`, false, nil},
		{"single rejects list", "false", `["r"]`, false, nil},
		{"unknown option", "false", `"blue"`, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Replace(strings.Replace(base, "%s", tt.multi, 1), "%s", tt.value, 1)
			doc, ve := validateText(t, text, Options{})
			if !tt.ok {
				require.NotNil(t, ve)
				return
			}
			require.Nil(t, ve)
			require.Equal(t, tt.want, doc.Elements[0].Value)
		})
	}
}

func TestValidateLeafValues(t *testing.T) {
	tests := []struct {
		name string
		elem string
		ok   bool
	}{
		{"date ok", `{"title":"D","description":"d","element_name":"DateField","value":"2024-02-29"}`, true},
		{"date bad", `{"title":"D","description":"d","element_name":"DateField","value":"29/02/2024"}`, false},
		{"textarea within", `{"title":"T","description":"d","max_length":5,"value":"héllo"}`, true},
		{"textarea over", `{"title":"T","description":"d","max_length":4,"value":"hello"}`, false},
		{"number within", `{"title":"N","description":"d","min_value":0,"max_value":10,"value":10}`, true},
		{"number below", `{"title":"N","description":"d","min_value":0,"max_value":null,"value":-1}`, false},
		{"number as string", `{"title":"N","description":"d","element_name":"NumberField","value":"3"}`, false},
		{"checkbox string", `{"title":"C","description":"d","element_name":"CheckboxField","value":"yes"}`, false},
		{"file ok", `{"title":"F","description":"d","allowed":["application/pdf"],"max_mb":1.5,"value":null}`, true},
		{"file bad mime", `{"title":"F","description":"d","allowed":["pdf"],"max_mb":null,"value":null}`, false},
		{"empty options", `{"title":"R","description":"d","options":[],"value":null}`, false},
		{"list ok", `{"title":"L","description":"d","items":[{"title":"i","description":"d","value":"x"}]}`, true},
		{"list value rejected", `{"title":"L","description":"d","items":null,"value":"x"}`, false},
		{"empty section", `{"title":"S","description":"d","annotations":[]}`, false},
		{"empty repeat", `{"title":"R","description":"d","annotations":[],"min_val":0,"max_val":null}`, true},
		{"repeat bounds inverted", `{"title":"R","description":"d","annotations":[],"min_val":3,"max_val":1}`, false},
		{"repeat fractional bound", `{"title":"R","description":"d","annotations":[],"min_val":1.5,"max_val":null}`, false},
		{"empty description", `{"title":"X","description":" ","value":null}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := `{"title":"t","description":"d","elements":[` + boxed(tt.elem) + `]}`
			_, ve := validateText(t, text, Options{})
			if tt.ok && ve != nil {
				t.Fatalf("unexpected violations: %+v", ve.Violations)
			}
			if !tt.ok && ve == nil {
				t.Fatalf("expected violations for %s", tt.elem)
			}
		})
	}
}

func TestValidateTableShape(t *testing.T) {
	cell := func(title string) string {
		return `{` + nullBBox + `,"title":"` + title + `","description":"c","value":null}`
	}
	table := func(cells ...string) string {
		return `{"title":"t","description":"d","elements":[{` + nullBBox + `,"title":"T","description":"d","columns":["A","B"],"rows":[[` + strings.Join(cells, ",") + `]]}]}`
	}
	ok := table(cell("A"), cell("B"))
	doc, ve := validateText(t, ok, Options{})
	require.Nil(t, ve)
	require.Equal(t, []string{"A", "B"}, doc.Elements[0].Columns)
	require.Len(t, doc.Elements[0].Rows[0], 2)

	short := table(cell("A"))
	_, ve = validateText(t, short, Options{})
	require.NotNil(t, ve)
	require.True(t, hasViolation(ve, "elements[0].rows[0]", ViolationTableShape), "%+v", ve.Violations)

	mislabeled := table(cell("A"), cell("C"))
	_, ve = validateText(t, mislabeled, Options{})
	require.NotNil(t, ve)
	require.True(t, hasViolation(ve, "elements[0].rows[0][1].title", ViolationTableShape), "%+v", ve.Violations)
}

func TestValidateDepthLimit(t *testing.T) {
	leaf := `{"title":"x","description":"d","value":null}`
	nested := leaf
	for i := 0; i < 4; i++ {
		nested = `{"title":"g","description":"d","annotations":[` + nested + `]}`
	}
	text := `{"title":"t","description":"d","elements":[` + boxed(nested) + `]}`

	_, ve := validateText(t, text, Options{MaxDepth: 5})
	require.Nil(t, ve)

	_, ve = validateText(t, text, Options{MaxDepth: 4})
	require.NotNil(t, ve)
	require.Equal(t, ViolationDepth, ve.Violations[0].Kind)
}

func TestValidateBBoxPolicy(t *testing.T) {
	text := `{"title":"t","description":"d","elements":[{"title":"x","description":"d","bbox":"nonsense","value":null}]}`
	_, ve := validateText(t, text, Options{})
	require.NotNil(t, ve)

	doc, ve := validateText(t, text, Options{BBox: BBoxIgnore})
	require.Nil(t, ve)
	require.True(t, doc.Elements[0].BBox.IsNull())
}

func TestValidateStrictBBox(t *testing.T) {
	tests := []struct {
		name string
		bbox string
		path string
		kind ViolationKind
	}{
		{"missing", ``, "elements[0].bbox", ViolationMissing},
		{"null", `"bbox":null,`, "elements[0].bbox", ViolationBBox},
		{"single point", `"bbox":[{"x":1,"y":2}],`, "elements[0].bbox", ViolationBBox},
		{"x without y", `"bbox":[{"x":1,"y":null},{"x":3,"y":4}],`, "elements[0].bbox[0]", ViolationBBox},
		{"y without x", `"bbox":[{"x":1,"y":2},{"y":4}],`, "elements[0].bbox[1]", ViolationBBox},
		{"string coordinate", `"bbox":[{"x":"1","y":2},{"x":3,"y":4}],`, "elements[0].bbox[0].x", ViolationBBox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := `{"title":"t","description":"d","elements":[{` + tt.bbox + `"title":"x","description":"d","value":null}]}`
			_, ve := validateText(t, text, Options{})
			require.NotNil(t, ve)
			require.True(t, hasViolation(ve, tt.path, tt.kind), "%+v", ve.Violations)

			doc, ve := validateText(t, text, Options{BBox: BBoxIgnore})
			require.Nil(t, ve)
			require.True(t, doc.Elements[0].BBox.IsNull())
		})
	}
}

func TestValidateStrictBBoxAccepts(t *testing.T) {
	tests := []struct {
		name string
		bbox string
		null bool
	}{
		{"all null", `[{"x":null,"y":null},{"x":null,"y":null}]`, true},
		{"omitted coordinates", `[{},{}]`, true},
		{"full", `[{"x":1,"y":2},{"x":3,"y":4}]`, false},
		{"one known corner", `[{"x":1,"y":2},{"x":null,"y":null}]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := `{"title":"t","description":"d","elements":[{"bbox":` + tt.bbox + `,"title":"x","description":"d","value":null}]}`
			doc, ve := validateText(t, text, Options{})
			require.Nil(t, ve)
			require.Equal(t, tt.null, doc.Elements[0].BBox.IsNull())
		})
	}
}

func TestValidateOptionsBeatBooleanValue(t *testing.T) {
	text := `{"title":"t","description":"d","elements":[` + boxed(`{"title":"x","description":"d","options":["a","b"],"value":true}`) + `]}`
	_, ve := validateText(t, text, Options{})
	require.NotNil(t, ve)
	require.True(t, hasViolation(ve, "elements[0].value", ViolationOption), "%+v", ve.Violations)
	require.False(t, hasViolation(ve, "elements[0].value", ViolationType), "%+v", ve.Violations)
}

func TestValidateElementNameMustBeKnown(t *testing.T) {
	text := `{"title":"t","description":"d","elements":[{"title":"x","description":"d","element_name":"Gizmo","value":null}]}`
	_, ve := validateText(t, text, Options{})
	require.NotNil(t, ve)
	require.True(t, hasViolation(ve, "elements[0].element_name", ViolationValue))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"title":`), Options{})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Len(t, ve.Violations, 1)
	require.Equal(t, "", ve.Violations[0].Path)
}
