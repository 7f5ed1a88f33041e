package form

// Point is one bbox corner. X and Y are both set or both null.
type Point struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// BBox is a pair of corners locating an element on a page image. The zero
// BBox has every coordinate null.
type BBox [2]Point

// IsNull reports whether every coordinate of b is null.
func (b BBox) IsNull() bool {
	for _, p := range b {
		if p.X != nil || p.Y != nil {
			return false
		}
	}
	return true
}

func (b BBox) clone() BBox {
	var out BBox
	for i, p := range b {
		out[i] = Point{X: cloneFloat(p.X), Y: cloneFloat(p.Y)}
	}
	return out
}

// Option is one entry of a radio or select element. Value is a string or a
// float64.
type Option struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Element is a single node of a form tree. Kind selects which of the
// attribute groups below are meaningful; the rest stay at their zero value.
//
// Value holds the filled-in answer for leaf kinds and is normalized to one of
// nil, string, float64, bool, Option or []Option.
type Element struct {
	Kind        Kind
	Title       string
	Description string
	BBox        BBox
	Value       any

	// textarea
	MaxLength *int
	// number
	MinValue *float64
	MaxValue *float64
	// radio, select
	Options []Option
	Multi   bool
	// file, image
	Allowed []string
	MaxMB   *float64
	// list
	Items []Element

	// section, repeat, wizard
	Annotations []Element
	Collapsible bool
	Collapsed   bool
	MinVal      *int
	MaxVal      *int
	Order       *int
	Optional    bool
	// table
	Columns []string
	Rows    [][]Element
}

// Document is a whole form: a title, a description and the top-level
// elements in display order.
type Document struct {
	Title       string
	Description string
	Elements    []Element
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{
		Title:       d.Title,
		Description: d.Description,
		Elements:    cloneElements(d.Elements),
	}
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	out := e
	out.BBox = e.BBox.clone()
	out.Value = cloneValue(e.Value)
	out.MaxLength = cloneInt(e.MaxLength)
	out.MinValue = cloneFloat(e.MinValue)
	out.MaxValue = cloneFloat(e.MaxValue)
	out.Options = cloneOptions(e.Options)
	out.Allowed = cloneStrings(e.Allowed)
	out.MaxMB = cloneFloat(e.MaxMB)
	out.Items = cloneElements(e.Items)
	out.Annotations = cloneElements(e.Annotations)
	out.MinVal = cloneInt(e.MinVal)
	out.MaxVal = cloneInt(e.MaxVal)
	out.Order = cloneInt(e.Order)
	out.Columns = cloneStrings(e.Columns)
	if e.Rows != nil {
		out.Rows = make([][]Element, len(e.Rows))
		for i, row := range e.Rows {
			out.Rows[i] = cloneElements(row)
		}
	}
	return out
}

// Walk calls fn for every element of d in document order, parents before
// children. List items are visited too.
func (d *Document) Walk(fn func(*Element)) {
	if d == nil {
		return
	}
	for i := range d.Elements {
		walkElement(&d.Elements[i], fn)
	}
}

func walkElement(e *Element, fn func(*Element)) {
	fn(e)
	for i := range e.Annotations {
		walkElement(&e.Annotations[i], fn)
	}
	for i := range e.Items {
		walkElement(&e.Items[i], fn)
	}
	for _, row := range e.Rows {
		for j := range row {
			walkElement(&row[j], fn)
		}
	}
}

func cloneElements(in []Element) []Element {
	if in == nil {
		return nil
	}
	out := make([]Element, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func cloneOptions(in []Option) []Option {
	if in == nil {
		return nil
	}
	out := make([]Option, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneValue(v any) any {
	if opts, ok := v.([]Option); ok {
		return cloneOptions(opts)
	}
	return v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
