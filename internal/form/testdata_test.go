package form

import (
	"strings"
	"testing"
)

const invoiceJSON = `{
  "title": "Invoice",
  "description": "Supplier invoice",
  "elements": [
    {"title": "Customer", "description": "Customer name", "bbox": [{"x": 10, "y": 20}, {"x": 200, "y": 40}], "value": null},
    {"title": "Date", "description": "Issue date", "element_name": "DateField", "bbox": [{"x": null, "y": null}, {"x": null, "y": null}], "value": null},
    {"title": "Paid", "description": "Already paid", "element_name": "CheckboxField", "bbox": [{"x": null, "y": null}, {"x": null, "y": null}], "value": null},
    {"title": "Currency", "description": "Billing currency", "options": ["EUR", "USD"], "bbox": [{"x": 400, "y": 20}, {"x": 450, "y": 40}], "value": null},
    {
      "title": "Lines", "description": "Invoice lines", "min_val": 1, "max_val": 10,
      "bbox": [{"x": 5, "y": 60}, {"x": 300, "y": 90}],
      "annotations": [
        {
          "title": "Line", "description": "One line",
          "bbox": [{"x": 5, "y": 60}, {"x": 300, "y": 70}],
          "annotations": [
            {"title": "Item", "description": "Item name", "bbox": [{"x": 5, "y": 60}, {"x": 100, "y": 70}], "value": null},
            {"title": "Amount", "description": "Line amount", "min_value": 0, "max_value": null, "bbox": [{"x": 110, "y": 60}, {"x": 200, "y": 70}], "value": null}
          ]
        }
      ]
    }
  ]
}`

const nullBBox = `"bbox":[{"x":null,"y":null},{"x":null,"y":null}]`

// boxed gives every element object in a compact JSON fragment a null bbox.
// Elements are the objects opening with "title".
func boxed(elements string) string {
	return strings.ReplaceAll(elements, `{"title":`, `{`+nullBBox+`,"title":`)
}

func mustDecode(t *testing.T, text string) *Document {
	t.Helper()
	doc, err := Decode([]byte(text), Options{})
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return doc
}

func mustEncode(t *testing.T, doc *Document) string {
	t.Helper()
	b, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(b)
}

func floatPtr(v float64) *float64 { return &v }
