package form

// Mode selects what a candidate document may change.
type Mode int

const (
	// ModeStructure replaces the whole document. Every bbox in the result is
	// null; values pass through.
	ModeStructure Mode = iota + 1
	// ModeValue changes values only. The candidate must be structurally
	// identical to the prior document, whose structure and bboxes are kept.
	ModeValue
)

func (m Mode) String() string {
	switch m {
	case ModeStructure:
		return "structure"
	case ModeValue:
		return "value"
	}
	return "unknown"
}

// CandidateOptions returns the validator options for model output in mode m.
// Candidate bboxes are never kept, so they are not checked.
func CandidateOptions(m Mode, maxDepth int) Options {
	return Options{MaxDepth: maxDepth, BBox: BBoxIgnore}
}

// Merge combines the canonical document with a validated candidate. Neither
// input is modified.
//
// In ModeStructure prior may be nil. In ModeValue a nil prior yields
// ErrNoPriorDocument, repeat instance counts outside [min_val, max_val]
// yield a *ValidationError, and any other structural difference yields a
// *StructureDivergenceError.
func Merge(prior, candidate *Document, mode Mode) (*Document, error) {
	if candidate == nil {
		return nil, &ValidationError{Violations: []Violation{{Kind: ViolationMissing, Message: "candidate document is required"}}}
	}
	switch mode {
	case ModeStructure:
		out := candidate.Clone()
		out.Walk(func(e *Element) { e.BBox = BBox{} })
		return out, nil
	case ModeValue:
		if prior == nil {
			return nil, ErrNoPriorDocument
		}
		c := &comparer{}
		c.document(prior, candidate)
		if len(c.violations) > 0 {
			return nil, &ValidationError{Violations: c.violations}
		}
		if len(c.divergences) > 0 {
			return nil, &StructureDivergenceError{
				Path:  c.divergences[0],
				Paths: c.divergences,
				Diff:  StructureDiff(prior, candidate),
			}
		}
		return fillDocument(prior, candidate), nil
	}
	return nil, &ValidationError{Violations: []Violation{{Kind: ViolationValue, Message: "unknown merge mode " + mode.String()}}}
}

func fillDocument(prior, cand *Document) *Document {
	out := &Document{
		Title:       prior.Title,
		Description: prior.Description,
		Elements:    make([]Element, len(prior.Elements)),
	}
	for i := range prior.Elements {
		out.Elements[i] = fillElement(prior.Elements[i], cand.Elements[i])
	}
	return out
}

// fillElement keeps prior's structure and bbox and takes cand's values.
// Callers guarantee both sides are structurally identical.
func fillElement(prior, cand Element) Element {
	out := prior.Clone()
	switch prior.Kind {
	case KindSection, KindWizard:
		for i := range out.Annotations {
			out.Annotations[i] = fillElement(prior.Annotations[i], cand.Annotations[i])
		}
	case KindRepeat:
		out.Annotations = make([]Element, len(cand.Annotations))
		for i, inst := range cand.Annotations {
			if i < len(prior.Annotations) {
				out.Annotations[i] = fillElement(prior.Annotations[i], inst)
				continue
			}
			added := fillElement(prior.Annotations[0], inst)
			walkElement(&added, func(e *Element) { e.BBox = BBox{} })
			out.Annotations[i] = added
		}
	case KindTable:
		for i := range out.Rows {
			for j := range out.Rows[i] {
				out.Rows[i][j] = fillElement(prior.Rows[i][j], cand.Rows[i][j])
			}
		}
	case KindList:
		out.Items = fillItems(prior.Items, cand.Items)
	default:
		out.Value = cloneValue(cand.Value)
	}
	return out
}

// fillItems takes the candidate's list items. An item keeps the prior bbox at
// its index only when the prior item there has the same kind and title.
func fillItems(prior, cand []Element) []Element {
	if cand == nil {
		return nil
	}
	out := make([]Element, len(cand))
	for i, item := range cand {
		c := item.Clone()
		walkElement(&c, func(e *Element) { e.BBox = BBox{} })
		if i < len(prior) && prior[i].Kind == c.Kind && prior[i].Title == c.Title {
			c.BBox = prior[i].BBox.clone()
		}
		out[i] = c
	}
	return out
}
