package form

import "strings"

// Kind identifies the variant of a form element. The wire format carries no
// discriminator, so the kind is computed once by KindOf right after decoding
// and stored on the Element.
type Kind string

const (
	KindText      Kind = "text"
	KindTextArea  Kind = "textarea"
	KindNumber    Kind = "number"
	KindDate      Kind = "date"
	KindBoolean   Kind = "boolean"
	KindRadio     Kind = "radio"
	KindSelect    Kind = "select"
	KindFile      Kind = "file"
	KindImage     Kind = "image"
	KindSignature Kind = "signature"
	KindEmail     Kind = "email"
	KindURL       Kind = "url"
	KindPhone     Kind = "phone"
	KindList      Kind = "list"

	KindSection Kind = "section"
	KindRepeat  Kind = "repeat"
	KindWizard  Kind = "wizard"
	KindTable   Kind = "table"
)

// elementNames maps kinds to the optional `element_name` wire hint.
var elementNames = map[Kind]string{
	KindText:      "TextField",
	KindTextArea:  "TextAreaField",
	KindNumber:    "NumberField",
	KindDate:      "DateField",
	KindBoolean:   "CheckboxField",
	KindRadio:     "RadioField",
	KindSelect:    "SelectField",
	KindFile:      "FileField",
	KindImage:     "ImageField",
	KindSignature: "SignatureField",
	KindEmail:     "EmailField",
	KindURL:       "UrlField",
	KindPhone:     "PhoneField",
	KindList:      "ListField",
	KindSection:   "SectionGroup",
	KindRepeat:    "RepeatGroup",
	KindWizard:    "WizardStep",
	KindTable:     "TableGroup",
}

var kindsByElementName = func() map[string]Kind {
	out := make(map[string]Kind, len(elementNames))
	for k, name := range elementNames {
		out[strings.ToLower(name)] = k
	}
	return out
}()

// ElementName returns the wire hint emitted for k.
func (k Kind) ElementName() string { return elementNames[k] }

// IsComposite reports whether elements of kind k nest other elements as
// structure (sections, repeat groups, wizard steps, tables).
func (k Kind) IsComposite() bool {
	switch k {
	case KindSection, KindRepeat, KindWizard, KindTable:
		return true
	}
	return false
}

// IsGroup reports whether k keeps its children under `annotations`.
func (k Kind) IsGroup() bool {
	switch k {
	case KindSection, KindRepeat, KindWizard:
		return true
	}
	return false
}

func (k Kind) IsChoice() bool { return k == KindRadio || k == KindSelect }

func (k Kind) IsUpload() bool { return k == KindFile || k == KindImage }

// HasValue reports whether elements of kind k carry a `value` attribute.
func (k Kind) HasValue() bool { return !k.IsComposite() && k != KindList }

// kindFromElementName resolves an `element_name` hint, case-insensitively.
func kindFromElementName(name string) (Kind, bool) {
	k, ok := kindsByElementName[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// KindOf classifies a decoded JSON object. It is total: every object maps to
// exactly one kind. Precedence, highest first:
//
//  1. rows or columns                    -> table
//  2. annotations                        -> group (repeat/wizard/section by
//     their own attributes, then the hint, then section)
//  3. items                              -> list
//  4. options                            -> choice (select when multi is
//     present or options are objects, else radio)
//  5. allowed or max_mb                  -> upload (image or file)
//  6. min_value or max_value             -> number
//  7. max_length                         -> textarea
//  8. value type: bool -> boolean, number -> number
//  9. element_name hint for the remaining leaf kinds
//  10. text
//
// Attribute presence is decided by key, not by a non-null value, so
// `"max_length": null` still marks a textarea.
func KindOf(obj map[string]any) Kind {
	hint, hinted := hintOf(obj)

	if has(obj, "rows") || has(obj, "columns") {
		return KindTable
	}
	if has(obj, "annotations") {
		switch {
		case has(obj, "min_val") || has(obj, "max_val"):
			return KindRepeat
		case has(obj, "order") || has(obj, "optional"):
			return KindWizard
		case has(obj, "collapsible") || has(obj, "collapsed"):
			return KindSection
		case hinted && hint.IsGroup():
			return hint
		}
		return KindSection
	}
	if has(obj, "items") {
		return KindList
	}
	if has(obj, "options") {
		if has(obj, "multi") || optionsAreObjects(obj["options"]) || (hinted && hint == KindSelect) {
			return KindSelect
		}
		return KindRadio
	}
	if has(obj, "allowed") || has(obj, "max_mb") {
		if hinted && hint == KindImage {
			return KindImage
		}
		if hinted && hint == KindFile {
			return KindFile
		}
		if allowsOnlyImages(obj["allowed"]) {
			return KindImage
		}
		return KindFile
	}
	if has(obj, "min_value") || has(obj, "max_value") {
		return KindNumber
	}
	if has(obj, "max_length") {
		return KindTextArea
	}
	switch obj["value"].(type) {
	case bool:
		return KindBoolean
	case float64:
		return KindNumber
	}
	if hinted && hint.HasValue() && !hint.IsChoice() && !hint.IsUpload() {
		return hint
	}
	return KindText
}

func hintOf(obj map[string]any) (Kind, bool) {
	name, ok := obj["element_name"].(string)
	if !ok {
		return "", false
	}
	return kindFromElementName(name)
}

func has(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

func optionsAreObjects(raw any) bool {
	list, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

func allowsOnlyImages(raw any) bool {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return false
	}
	for _, item := range list {
		s, ok := item.(string)
		if !ok || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "image/") {
			return false
		}
	}
	return true
}
