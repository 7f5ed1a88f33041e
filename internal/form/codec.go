package form

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses JSON text and validates it. Malformed JSON is reported as a
// single root violation so callers see one error type for bad documents.
func Decode(data []byte, opts Options) (*Document, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, &ValidationError{Violations: []Violation{{
			Kind:    ViolationType,
			Message: fmt.Sprintf("document is not valid JSON: %v", err),
		}}}
	}
	return Validate(tree, opts)
}

// Encode serializes d with HTML characters left unescaped.
func Encode(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes with default options and a strict bbox policy.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Decode(data, Options{})
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	var o object
	o.set("title", d.Title)
	o.set("description", d.Description)
	o.set("elements", nonNilElements(d.Elements))
	return o.MarshalJSON()
}

// MarshalJSON writes attributes in a fixed order, always including
// `element_name`. Leaf values are written even when null.
func (e Element) MarshalJSON() ([]byte, error) {
	var o object
	o.set("element_name", e.Kind.ElementName())
	o.set("title", e.Title)
	o.set("description", e.Description)
	o.set("bbox", e.BBox)

	switch e.Kind {
	case KindTextArea:
		o.set("max_length", e.MaxLength)
	case KindNumber:
		o.set("min_value", e.MinValue)
		o.set("max_value", e.MaxValue)
	case KindRadio:
		labels := make([]string, 0, len(e.Options))
		for _, opt := range e.Options {
			labels = append(labels, opt.Label)
		}
		o.set("options", labels)
	case KindSelect:
		o.set("options", nonNilOptions(e.Options))
		o.set("multi", e.Multi)
	case KindFile, KindImage:
		o.set("allowed", e.Allowed)
		o.set("max_mb", e.MaxMB)
	case KindList:
		o.set("items", e.Items)
	case KindSection:
		o.set("collapsible", e.Collapsible)
		o.set("collapsed", e.Collapsed)
		o.set("annotations", nonNilElements(e.Annotations))
	case KindRepeat:
		o.set("min_val", e.MinVal)
		o.set("max_val", e.MaxVal)
		o.set("annotations", nonNilElements(e.Annotations))
	case KindWizard:
		o.set("order", e.Order)
		o.set("optional", e.Optional)
		o.set("annotations", nonNilElements(e.Annotations))
	case KindTable:
		o.set("columns", nonNilStrings(e.Columns))
		rows := e.Rows
		if rows == nil {
			rows = [][]Element{}
		}
		o.set("rows", rows)
	}
	if e.Kind.HasValue() {
		o.set("value", wireValue(e.Kind, e.Value))
	}
	return o.MarshalJSON()
}

// wireValue writes radio answers as the bare option value and select answers
// as option objects.
func wireValue(k Kind, v any) any {
	if k == KindRadio {
		if opt, ok := v.(Option); ok {
			return opt.Value
		}
	}
	return v
}

type field struct {
	key   string
	value any
}

// object is a JSON object that keeps insertion order.
type object []field

func (o *object) set(key string, value any) {
	*o = append(*o, field{key: key, value: value})
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	out := []byte{'{'}
	for i, f := range o {
		if i > 0 {
			out = append(out, ',')
		}
		buf.Reset()
		if err := enc.Encode(f.key); err != nil {
			return nil, err
		}
		out = append(out, bytes.TrimRight(buf.Bytes(), "\n")...)
		out = append(out, ':')
		buf.Reset()
		if err := enc.Encode(f.value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.key, err)
		}
		out = append(out, bytes.TrimRight(buf.Bytes(), "\n")...)
	}
	return append(out, '}'), nil
}

func nonNilElements(in []Element) []Element {
	if in == nil {
		return []Element{}
	}
	return in
}

func nonNilOptions(in []Option) []Option {
	if in == nil {
		return []Option{}
	}
	return in
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
