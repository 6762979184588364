package infer

import (
	"fmt"
	"strings"

	"github.com/c360studio/archspec/rules"
)

// EmitYAML renders proposals as rule-store entries, indented so the block
// pastes directly under an `invariants:` key. An empty proposal list still
// gets the header so downstream consumers see the run happened.
func EmitYAML(proposals []rules.Invariant, minConfidence float64) string {
	var b strings.Builder
	b.WriteString("# Auto-inferred rules (archspec infer)\n")
	fmt.Fprintf(&b, "# Min confidence: %.0f%%\n", minConfidence)
	b.WriteString("# Review before applying\n")

	if len(proposals) == 0 {
		b.WriteString("# No rules inferred at this confidence level\n")
		return b.String()
	}
	b.WriteString("\n")

	for _, p := range proposals {
		fmt.Fprintf(&b, "  - id: %s\n", p.ID)
		fmt.Fprintf(&b, "    type: %s\n", p.Type)
		fmt.Fprintf(&b, "    severity: %s\n", p.Severity)
		fmt.Fprintf(&b, "    description: %q\n", p.Description)
		if p.SourceGlob != "" {
			fmt.Fprintf(&b, "    source_glob: %q\n", p.SourceGlob)
		}
		writeList(&b, "forbidden_imports", p.ForbiddenImports)
		writeList(&b, "allowed_imports", p.AllowedImports)
		fmt.Fprintf(&b, "    inferred: %t\n", p.Inferred)
		if p.Confidence == float64(int(p.Confidence)) {
			fmt.Fprintf(&b, "    confidence: %d\n", int(p.Confidence))
		} else {
			fmt.Fprintf(&b, "    confidence: %.1f\n", p.Confidence)
		}
	}
	return b.String()
}

func writeList(b *strings.Builder, field string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "    %s:\n", field)
	for _, item := range items {
		fmt.Fprintf(b, "      - %q\n", item)
	}
}
