package pipeline

import (
	"fmt"
	"strconv"

	"github.com/trandvq/docsense/types"
)

// ValidationReport separates advisory warnings from schema errors. Neither
// blocks storage; both force the needs-review flag.
type ValidationReport struct {
	Warnings []string
	Errors   []string
}

func (r ValidationReport) Clean() bool {
	return len(r.Warnings) == 0 && len(r.Errors) == 0
}

func (r ValidationReport) All() []string {
	return append(append([]string{}, r.Errors...), r.Warnings...)
}

// requiredSchema lists the canonical fields per type and whether the value
// must parse as a number.
var requiredSchema = map[types.DocumentType][]schemaField{
	types.DocTypeInvoice: {
		{name: "total", numeric: true},
		{name: "date"},
	},
	types.DocTypeContract: {
		{name: "parties"},
	},
	types.DocTypeReport: {
		{name: "title"},
	},
}

type schemaField struct {
	name    string
	numeric bool
}

// Validate checks the document against the canonical schema for its type.
// Missing required fields are warnings; present fields with a wrong value
// type are errors.
func Validate(doc *types.NormalizedDocument) ValidationReport {
	var report ValidationReport

	for _, field := range requiredSchema[doc.Type] {
		value, ok := doc.Fields[field.name]
		if !ok || value == "" {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("missing required field %q for type %s", field.name, doc.Type))
			continue
		}
		if field.numeric {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				report.Errors = append(report.Errors,
					fmt.Sprintf("field %q must be numeric, got %q", field.name, value))
			}
		}
	}

	for i, item := range doc.LineItems {
		if item.Quantity < 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("line item %d has negative quantity", i))
		}
	}

	return report
}
