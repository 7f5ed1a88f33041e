package chat

import (
	"bytes"
	"fmt"
	"strings"

	"fastform/internal/form"
)

// promptSpec holds the sections of a workflow system prompt.
type promptSpec struct {
	Purpose      string
	Rules        []string
	OutputFormat string
}

var buildPrompt = promptSpec{
	Purpose: "You design fillable forms. Read the user's request and any attached page images, " +
		"then produce the complete form structure, or ask a short question when the request is unclear.",
	Rules: []string{
		"Return the whole form every time, never a partial patch.",
		"Every element needs a title and a description.",
		"Set bbox to [{\"x\":null,\"y\":null},{\"x\":null,\"y\":null}] on every element.",
		"Leave value null unless the user supplied it.",
		"Kinds are told apart by their attributes: options for radio and select, " +
			"min_value/max_value for number, max_length for textarea, allowed/max_mb for file and image, " +
			"items for list, annotations for section/repeat/wizard groups, columns/rows for tables.",
		"Repeat groups carry min_val and max_val; wizard steps carry order and optional.",
		"Dates are formatted YYYY-MM-DD.",
	},
	OutputFormat: `{"action":"form","form":{"title":"...","description":"...","elements":[...]},"message":"short summary"}` +
		"\nor, to ask the user something:\n" +
		`{"action":"message","message":"..."}`,
}

var fillPrompt = promptSpec{
	Purpose: "You fill in an existing form from what the user tells you. " +
		"The structure is fixed: only value fields may change.",
	Rules: []string{
		"Return the whole form every time with the same elements in the same order.",
		"Never add, remove, rename or reorder elements, options, columns or bounds.",
		"Repeat groups may gain or lose instances within min_val and max_val; copy the first instance's structure for new ones.",
		"Radio values are one of the option labels; select values are option objects.",
		"Keep values within max_length and min_value/max_value. Dates are YYYY-MM-DD.",
		"Leave a value null when the user has not provided it.",
	},
	OutputFormat: `{"action":"form","form":{...the same form with values...},"message":"short summary"}` +
		"\nor, to ask the user something:\n" +
		`{"action":"message","message":"..."}`,
}

func promptFor(mode form.Mode) promptSpec {
	if mode == form.ModeValue {
		return fillPrompt
	}
	return buildPrompt
}

// systemPrompt renders spec with the current canonical document, if any.
func systemPrompt(spec promptSpec, current *form.Document) (string, error) {
	structure := "(none yet)"
	if current != nil {
		b, err := form.Encode(current)
		if err != nil {
			return "", fmt.Errorf("encode current form: %w", err)
		}
		structure = string(b)
	}
	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", spec.Purpose)
	writeSection(&buf, "CURRENT_FORM", structure)
	writeSection(&buf, "RULES", formatList(spec.Rules))
	writeSection(&buf, "OUTPUT_FORMAT", spec.OutputFormat)
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func writeSection(buf *bytes.Buffer, name, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(buf, "[%s]\n%s\n\n", name, body)
}

func formatList(items []string) string {
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}
