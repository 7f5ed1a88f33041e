package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fastform/internal/form"
)

func newValidateCmd() *cobra.Command {
	var (
		maxDepth   int
		ignoreBBox bool
	)
	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a form document (JSON or YAML) and print every violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			opts := form.Options{MaxDepth: maxDepth}
			if ignoreBBox {
				opts.BBox = form.BBoxIgnore
			}
			return validateDocument(cmd.OutOrStdout(), args[0], data, opts)
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", form.DefaultMaxDepth, "maximum nesting depth")
	cmd.Flags().BoolVar(&ignoreBBox, "ignore-bbox", false, "accept any bbox value")
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

// validateDocument prints "ok" or one line per violation. Any violation
// makes it return an error.
func validateDocument(out io.Writer, name string, data []byte, opts form.Options) error {
	if isYAML(name) {
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("%s: invalid YAML: %w", name, err)
		}
		b, err := json.Marshal(tree)
		if err != nil {
			return fmt.Errorf("%s: convert YAML: %w", name, err)
		}
		data = b
	}
	doc, err := form.Decode(data, opts)
	if err != nil {
		ve, ok := form.AsValidationError(err)
		if !ok {
			return err
		}
		for _, v := range ve.Violations {
			fmt.Fprintf(out, "%s\t%s\n", v.Kind, v)
		}
		return fmt.Errorf("%s: %d violation(s)", name, len(ve.Violations))
	}
	fmt.Fprintf(out, "ok: %q with %d top-level element(s)\n", doc.Title, len(doc.Elements))
	return nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
