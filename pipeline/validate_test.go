package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trandvq/docsense/types"
)

func TestValidateCleanInvoice(t *testing.T) {
	report := Validate(&types.NormalizedDocument{
		Type:   types.DocTypeInvoice,
		Fields: map[string]string{"total": "1250.00", "date": "2024-01-15"},
	})

	assert.True(t, report.Clean())
	assert.Empty(t, report.All())
}

func TestValidateMissingFieldIsWarning(t *testing.T) {
	report := Validate(&types.NormalizedDocument{
		Type:   types.DocTypeInvoice,
		Fields: map[string]string{"total": "1250.00"},
	})

	assert.False(t, report.Clean())
	assert.Len(t, report.Warnings, 1)
	assert.Empty(t, report.Errors)
}

func TestValidateNonNumericTotalIsError(t *testing.T) {
	report := Validate(&types.NormalizedDocument{
		Type:   types.DocTypeInvoice,
		Fields: map[string]string{"total": "one thousand", "date": "2024-01-15"},
	})

	assert.False(t, report.Clean())
	assert.Len(t, report.Errors, 1)
}

func TestValidateGenericHasNoSchema(t *testing.T) {
	report := Validate(&types.NormalizedDocument{Type: types.DocTypeGeneric, Fields: map[string]string{}})
	assert.True(t, report.Clean())
}
