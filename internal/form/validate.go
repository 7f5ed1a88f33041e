package form

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxDepth bounds nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 16

// DateLayout is the accepted layout for date values.
const DateLayout = "2006-01-02"

// BBoxPolicy controls how bbox attributes are checked.
type BBoxPolicy int

const (
	// BBoxStrict requires every element to carry a bbox that is a pair of
	// {x, y} objects. Both coordinates of a point are numbers or both are null.
	BBoxStrict BBoxPolicy = iota
	// BBoxIgnore accepts anything under `bbox` and decodes it as null. Used
	// for model output, whose boxes are always replaced.
	BBoxIgnore
)

// Options tunes Validate.
type Options struct {
	MaxDepth int
	BBox     BBoxPolicy
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

var (
	documentKeys = keySet("title", "description", "elements")
	commonKeys   = []string{"title", "description", "bbox", "element_name"}
	kindKeys     = map[Kind]map[string]bool{
		KindText:      keySet("value"),
		KindTextArea:  keySet("value", "max_length"),
		KindNumber:    keySet("value", "min_value", "max_value"),
		KindDate:      keySet("value"),
		KindBoolean:   keySet("value"),
		KindRadio:     keySet("value", "options"),
		KindSelect:    keySet("value", "options", "multi"),
		KindFile:      keySet("value", "allowed", "max_mb"),
		KindImage:     keySet("value", "allowed", "max_mb"),
		KindSignature: keySet("value"),
		KindEmail:     keySet("value"),
		KindURL:       keySet("value"),
		KindPhone:     keySet("value"),
		KindList:      keySet("items"),
		KindSection:   keySet("annotations", "collapsible", "collapsed"),
		KindRepeat:    keySet("annotations", "min_val", "max_val"),
		KindWizard:    keySet("annotations", "order", "optional"),
		KindTable:     keySet("columns", "rows"),
	}
	optionKeys = keySet("label", "value")
	pointKeys  = keySet("x", "y")
)

func keySet(keys ...string) map[string]bool {
	out := make(map[string]bool, len(keys)+len(commonKeys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}

// Validate checks an untyped JSON tree (as produced by encoding/json into an
// `any`) against the form schema and returns the typed document. It never
// stops at the first problem: on failure the returned *ValidationError lists
// every violation found.
func Validate(tree any, opts Options) (*Document, error) {
	v := &validator{opts: opts}
	doc := v.document(tree)
	if len(v.violations) > 0 {
		return nil, &ValidationError{Violations: v.violations}
	}
	return doc, nil
}

type validator struct {
	opts       Options
	violations []Violation
}

func (v *validator) addf(path string, kind ViolationKind, format string, args ...any) {
	v.violations = append(v.violations, Violation{Path: path, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) document(tree any) *Document {
	obj, ok := tree.(map[string]any)
	if !ok {
		v.addf("", ViolationType, "document must be an object, got %s", typeName(tree))
		return nil
	}
	v.unknownKeys("", obj, documentKeys, nil)
	doc := &Document{
		Title:       v.requiredText("", obj, "title"),
		Description: v.requiredText("", obj, "description"),
	}
	raw, present := obj["elements"]
	if !present {
		v.addf("elements", ViolationMissing, "elements is required")
		return doc
	}
	list, ok := raw.([]any)
	if !ok {
		v.addf("elements", ViolationType, "elements must be an array, got %s", typeName(raw))
		return doc
	}
	doc.Elements = v.elements("elements", list, 1)
	return doc
}

func (v *validator) elements(path string, list []any, depth int) []Element {
	out := make([]Element, 0, len(list))
	for i, raw := range list {
		out = append(out, v.element(indexPath(path, i), raw, depth))
	}
	return out
}

func (v *validator) element(path string, raw any, depth int) Element {
	obj, ok := raw.(map[string]any)
	if !ok {
		v.addf(path, ViolationType, "element must be an object, got %s", typeName(raw))
		return Element{}
	}
	if depth > v.opts.maxDepth() {
		v.addf(path, ViolationDepth, "nesting exceeds maximum depth %d", v.opts.maxDepth())
		return Element{}
	}

	kind := KindOf(obj)
	e := Element{
		Kind:        kind,
		Title:       v.requiredText(path, obj, "title"),
		Description: v.requiredText(path, obj, "description"),
		BBox:        v.bbox(joinPath(path, "bbox"), obj),
	}
	if name, present := obj["element_name"]; present {
		s, ok := name.(string)
		if !ok {
			v.addf(joinPath(path, "element_name"), ViolationType, "element_name must be a string")
		} else if _, known := kindFromElementName(s); !known {
			v.addf(joinPath(path, "element_name"), ViolationValue, "unknown element_name %q", s)
		}
	}
	v.unknownKeys(path, obj, kindKeys[kind], commonKeys)

	switch kind {
	case KindText, KindSignature, KindEmail, KindURL, KindPhone:
		e.Value = v.stringValue(path, obj)
	case KindTextArea:
		e.MaxLength = v.nonNegativeInt(path, obj, "max_length")
		e.Value = v.stringValue(path, obj)
		if s, ok := e.Value.(string); ok && e.MaxLength != nil && utf8.RuneCountInString(s) > *e.MaxLength {
			v.addf(joinPath(path, "value"), ViolationRange, "value has %d characters, max_length is %d", utf8.RuneCountInString(s), *e.MaxLength)
		}
	case KindDate:
		e.Value = v.stringValue(path, obj)
		if s, ok := e.Value.(string); ok {
			if _, err := time.Parse(DateLayout, s); err != nil {
				v.addf(joinPath(path, "value"), ViolationValue, "date %q is not in YYYY-MM-DD form", s)
			}
		}
	case KindNumber:
		e.MinValue = v.optionalNumber(path, obj, "min_value")
		e.MaxValue = v.optionalNumber(path, obj, "max_value")
		if e.MinValue != nil && e.MaxValue != nil && *e.MinValue > *e.MaxValue {
			v.addf(joinPath(path, "min_value"), ViolationBounds, "min_value %v exceeds max_value %v", *e.MinValue, *e.MaxValue)
		}
		if n := v.optionalNumber(path, obj, "value"); n != nil {
			e.Value = *n
			if e.MinValue != nil && *n < *e.MinValue {
				v.addf(joinPath(path, "value"), ViolationRange, "value %v is below min_value %v", *n, *e.MinValue)
			}
			if e.MaxValue != nil && *n > *e.MaxValue {
				v.addf(joinPath(path, "value"), ViolationRange, "value %v is above max_value %v", *n, *e.MaxValue)
			}
		}
	case KindBoolean:
		if raw, present := obj["value"]; present && raw != nil {
			b, ok := raw.(bool)
			if !ok {
				v.addf(joinPath(path, "value"), ViolationType, "value must be a boolean, got %s", typeName(raw))
			} else {
				e.Value = b
			}
		}
	case KindRadio:
		e.Options = v.options(path, obj)
		e.Value = v.choice(joinPath(path, "value"), obj["value"], e.Options)
	case KindSelect:
		e.Options = v.options(path, obj)
		e.Multi = v.optionalBool(path, obj, "multi")
		e.Value = v.selectValue(joinPath(path, "value"), obj["value"], e.Options, e.Multi)
	case KindFile, KindImage:
		e.Allowed = v.mimeTypes(path, obj)
		if mb := v.optionalNumber(path, obj, "max_mb"); mb != nil {
			if *mb < 0 {
				v.addf(joinPath(path, "max_mb"), ViolationRange, "max_mb must not be negative")
			}
			e.MaxMB = mb
		}
		e.Value = v.stringValue(path, obj)
	case KindList:
		switch raw := obj["items"].(type) {
		case nil:
		case []any:
			e.Items = v.elements(joinPath(path, "items"), raw, depth+1)
		default:
			v.addf(joinPath(path, "items"), ViolationType, "items must be an array or null, got %s", typeName(raw))
		}
	case KindSection:
		e.Annotations = v.annotations(path, obj, depth, false)
		e.Collapsible = v.optionalBool(path, obj, "collapsible")
		e.Collapsed = v.optionalBool(path, obj, "collapsed")
	case KindWizard:
		e.Annotations = v.annotations(path, obj, depth, false)
		e.Order = v.optionalInt(path, obj, "order")
		e.Optional = v.optionalBool(path, obj, "optional")
	case KindRepeat:
		e.Annotations = v.annotations(path, obj, depth, true)
		e.MinVal = v.nonNegativeInt(path, obj, "min_val")
		e.MaxVal = v.nonNegativeInt(path, obj, "max_val")
		if e.MinVal != nil && e.MaxVal != nil && *e.MinVal > *e.MaxVal {
			v.addf(joinPath(path, "min_val"), ViolationBounds, "min_val %d exceeds max_val %d", *e.MinVal, *e.MaxVal)
		}
	case KindTable:
		e.Columns, e.Rows = v.table(path, obj, depth)
	}
	return e
}

func (v *validator) annotations(path string, obj map[string]any, depth int, allowEmpty bool) []Element {
	p := joinPath(path, "annotations")
	list, ok := obj["annotations"].([]any)
	if !ok {
		v.addf(p, ViolationType, "annotations must be an array, got %s", typeName(obj["annotations"]))
		return []Element{}
	}
	if len(list) == 0 && !allowEmpty {
		v.addf(p, ViolationEmpty, "annotations must not be empty")
	}
	return v.elements(p, list, depth+1)
}

func (v *validator) table(path string, obj map[string]any, depth int) ([]string, [][]Element) {
	colPath := joinPath(path, "columns")
	var columns []string
	switch raw := obj["columns"].(type) {
	case []any:
		columns = make([]string, 0, len(raw))
		for i, c := range raw {
			s, ok := c.(string)
			if !ok || strings.TrimSpace(s) == "" {
				v.addf(indexPath(colPath, i), ViolationType, "column must be a non-empty string")
				continue
			}
			columns = append(columns, s)
		}
		if len(raw) == 0 {
			v.addf(colPath, ViolationEmpty, "columns must not be empty")
		}
	default:
		v.addf(colPath, ViolationType, "columns must be an array, got %s", typeName(obj["columns"]))
	}

	rowPath := joinPath(path, "rows")
	rawRows, ok := obj["rows"].([]any)
	if !ok {
		v.addf(rowPath, ViolationType, "rows must be an array, got %s", typeName(obj["rows"]))
		return columns, [][]Element{}
	}
	rows := make([][]Element, 0, len(rawRows))
	for i, rawRow := range rawRows {
		p := indexPath(rowPath, i)
		cells, ok := rawRow.([]any)
		if !ok {
			v.addf(p, ViolationType, "row must be an array, got %s", typeName(rawRow))
			rows = append(rows, []Element{})
			continue
		}
		if columns != nil && len(cells) != len(columns) {
			v.addf(p, ViolationTableShape, "row has %d cells, table has %d columns", len(cells), len(columns))
		}
		row := v.elements(p, cells, depth+1)
		for j, cell := range row {
			cp := indexPath(p, j)
			if cell.Kind.IsComposite() {
				v.addf(cp, ViolationTableShape, "table cells must be leaf elements, got %s", cell.Kind)
			}
			if j < len(columns) && cell.Title != "" && cell.Title != columns[j] {
				v.addf(joinPath(cp, "title"), ViolationTableShape, "cell title %q does not match column %q", cell.Title, columns[j])
			}
		}
		rows = append(rows, row)
	}
	return columns, rows
}

func (v *validator) options(path string, obj map[string]any) []Option {
	p := joinPath(path, "options")
	list, ok := obj["options"].([]any)
	if !ok {
		v.addf(p, ViolationType, "options must be an array, got %s", typeName(obj["options"]))
		return []Option{}
	}
	if len(list) == 0 {
		v.addf(p, ViolationEmpty, "options must not be empty")
	}
	out := make([]Option, 0, len(list))
	for i, raw := range list {
		op := indexPath(p, i)
		switch item := raw.(type) {
		case string:
			if strings.TrimSpace(item) == "" {
				v.addf(op, ViolationEmpty, "option must not be empty")
				continue
			}
			out = append(out, Option{Label: item, Value: item})
		case map[string]any:
			v.unknownKeys(op, item, optionKeys, nil)
			label, _ := item["label"].(string)
			if strings.TrimSpace(label) == "" {
				v.addf(joinPath(op, "label"), ViolationEmpty, "option label must be a non-empty string")
			}
			value, ok := scalar(item["value"])
			if !ok {
				v.addf(joinPath(op, "value"), ViolationType, "option value must be a string or a number, got %s", typeName(item["value"]))
				continue
			}
			out = append(out, Option{Label: label, Value: value})
		default:
			v.addf(op, ViolationType, "option must be a string or an object, got %s", typeName(raw))
		}
	}
	return out
}

// choice resolves a single option reference. References match an option's
// value first and its label second; objects must match both.
func (v *validator) choice(path string, raw any, options []Option) any {
	if raw == nil {
		return nil
	}
	opt, ok := v.resolveOption(path, raw, options)
	if !ok {
		return nil
	}
	return opt
}

func (v *validator) selectValue(path string, raw any, options []Option, multi bool) any {
	if raw == nil {
		return nil
	}
	list, isList := raw.([]any)
	switch {
	case multi && !isList:
		v.addf(path, ViolationType, "multi-select value must be a list, got %s", typeName(raw))
		return nil
	case !multi && isList:
		v.addf(path, ViolationType, "single-select value must not be a list")
		return nil
	case !multi:
		return v.choice(path, raw, options)
	}
	out := make([]Option, 0, len(list))
	for i, item := range list {
		if opt, ok := v.resolveOption(indexPath(path, i), item, options); ok {
			out = append(out, opt)
		}
	}
	return out
}

func (v *validator) resolveOption(path string, raw any, options []Option) (Option, bool) {
	switch ref := raw.(type) {
	case map[string]any:
		v.unknownKeys(path, ref, optionKeys, nil)
		value, ok := scalar(ref["value"])
		if !ok {
			v.addf(joinPath(path, "value"), ViolationType, "option value must be a string or a number")
			return Option{}, false
		}
		label, _ := ref["label"].(string)
		for _, o := range options {
			if o.Value == value && (label == "" || o.Label == label) {
				return o, true
			}
		}
		v.addf(path, ViolationOption, "value %v does not reference a declared option", value)
		return Option{}, false
	case string, float64:
		for _, o := range options {
			if o.Value == ref {
				return o, true
			}
		}
		if s, ok := ref.(string); ok {
			for _, o := range options {
				if o.Label == s {
					return o, true
				}
			}
		}
		v.addf(path, ViolationOption, "value %v does not reference a declared option", ref)
		return Option{}, false
	case bool:
		v.addf(path, ViolationOption, "value %v does not reference a declared option", ref)
		return Option{}, false
	default:
		v.addf(path, ViolationType, "value must reference an option, got %s", typeName(raw))
		return Option{}, false
	}
}

func (v *validator) mimeTypes(path string, obj map[string]any) []string {
	raw, present := obj["allowed"]
	if !present || raw == nil {
		return nil
	}
	p := joinPath(path, "allowed")
	list, ok := raw.([]any)
	if !ok {
		v.addf(p, ViolationType, "allowed must be an array, got %s", typeName(raw))
		return nil
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok || !strings.Contains(s, "/") {
			v.addf(indexPath(p, i), ViolationValue, "allowed entries must be MIME types like image/png")
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *validator) bbox(path string, obj map[string]any) BBox {
	var out BBox
	if v.opts.BBox == BBoxIgnore {
		return out
	}
	raw, present := obj["bbox"]
	if !present {
		v.addf(path, ViolationMissing, "bbox is required")
		return out
	}
	list, ok := raw.([]any)
	if !ok || len(list) != 2 {
		v.addf(path, ViolationBBox, "bbox must be a pair of coordinates, got %s", typeName(raw))
		return out
	}
	for i, item := range list {
		p := indexPath(path, i)
		pt, ok := item.(map[string]any)
		if !ok {
			v.addf(p, ViolationBBox, "coordinate must be an object with x and y")
			continue
		}
		v.unknownKeys(p, pt, pointKeys, nil)
		out[i].X = v.coordinate(joinPath(p, "x"), pt["x"])
		out[i].Y = v.coordinate(joinPath(p, "y"), pt["y"])
		if (out[i].X == nil) != (out[i].Y == nil) {
			v.addf(p, ViolationBBox, "coordinate must have both x and y or neither")
		}
	}
	return out
}

func (v *validator) coordinate(path string, raw any) *float64 {
	if raw == nil {
		return nil
	}
	f, ok := raw.(float64)
	if !ok {
		v.addf(path, ViolationBBox, "coordinate must be a number or null, got %s", typeName(raw))
		return nil
	}
	return &f
}

func (v *validator) requiredText(path string, obj map[string]any, key string) string {
	p := joinPath(path, key)
	raw, present := obj[key]
	if !present {
		v.addf(p, ViolationMissing, "%s is required", key)
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.addf(p, ViolationType, "%s must be a string, got %s", key, typeName(raw))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		v.addf(p, ViolationEmpty, "%s must not be empty", key)
	}
	return s
}

func (v *validator) stringValue(path string, obj map[string]any) any {
	raw := obj["value"]
	if raw == nil {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		v.addf(joinPath(path, "value"), ViolationType, "value must be a string, got %s", typeName(raw))
		return nil
	}
	return s
}

func (v *validator) optionalNumber(path string, obj map[string]any, key string) *float64 {
	raw := obj[key]
	if raw == nil {
		return nil
	}
	f, ok := raw.(float64)
	if !ok {
		v.addf(joinPath(path, key), ViolationType, "%s must be a number, got %s", key, typeName(raw))
		return nil
	}
	return &f
}

func (v *validator) optionalInt(path string, obj map[string]any, key string) *int {
	f := v.optionalNumber(path, obj, key)
	if f == nil {
		return nil
	}
	if math.Trunc(*f) != *f || math.Abs(*f) > math.MaxInt32 {
		v.addf(joinPath(path, key), ViolationType, "%s must be an integer", key)
		return nil
	}
	n := int(*f)
	return &n
}

func (v *validator) nonNegativeInt(path string, obj map[string]any, key string) *int {
	n := v.optionalInt(path, obj, key)
	if n != nil && *n < 0 {
		v.addf(joinPath(path, key), ViolationRange, "%s must not be negative", key)
		return nil
	}
	return n
}

func (v *validator) optionalBool(path string, obj map[string]any, key string) bool {
	raw := obj[key]
	if raw == nil {
		return false
	}
	b, ok := raw.(bool)
	if !ok {
		v.addf(joinPath(path, key), ViolationType, "%s must be a boolean, got %s", key, typeName(raw))
	}
	return b
}

func (v *validator) unknownKeys(path string, obj map[string]any, allowed map[string]bool, common []string) {
	var unknown []string
	for k := range obj {
		if allowed[k] || contains(common, k) {
			continue
		}
		unknown = append(unknown, k)
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		v.addf(joinPath(path, k), ViolationUnknownField, "unknown attribute %q", k)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func scalar(raw any) (any, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case float64:
		return x, true
	}
	return nil, false
}

func typeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", raw)
}
