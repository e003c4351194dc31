package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/trandvq/docsense/types"
)

var (
	totalLinePattern = regexp.MustCompile(`(?i)(?:total|amount due|balance)\D{0,12}([$€£]?\s*[0-9][0-9.,]*)`)
	anyMoneyPattern  = regexp.MustCompile(`[$€£]\s*([0-9][0-9.,]*)`)
	isoDatePattern   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2}[./]\d{1,2}[./]\d{2,4})\b`)
	billToPattern    = regexp.MustCompile(`(?i)(?:bill to|billed to|customer|client)\s*[:\-]\s*([^\n,]{2,60})`)
	betweenPattern   = regexp.MustCompile(`(?i)between\s+(.{2,80}?)\s+and\s+(.{2,80}?)\s*[,.;:(\n]`)
	effectivePattern = regexp.MustCompile(`(?i)effective\s+(?:date|as of)\s*[:\-]?\s*([^\n,]{4,40})`)
	periodPattern    = regexp.MustCompile(`(?i)\b(q[1-4]\s*\d{4}|fy\s*\d{4}|\d{4})\b`)
	dearPattern      = regexp.MustCompile(`(?i)dear\s+([^\n,]{2,60})`)
)

// requiredFields lists the fields the canonical schema expects for a type.
// Absence lowers classification confidence and produces a validation warning.
func requiredFields(t types.DocumentType) []string {
	switch t {
	case types.DocTypeInvoice:
		return []string{"total", "date"}
	case types.DocTypeContract:
		return []string{"parties"}
	case types.DocTypeReport:
		return []string{"title"}
	default:
		return nil
	}
}

// extractFields runs the type-specific extractors. Every extracted field
// carries a sub-confidence reflecting how direct the match was.
func extractFields(t types.DocumentType, content string) (map[string]string, map[string]float64) {
	fields := map[string]string{}
	conf := map[string]float64{}

	set := func(name, value string, c float64) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		fields[name] = value
		conf[name] = c
	}

	switch t {
	case types.DocTypeInvoice:
		if m := totalLinePattern.FindStringSubmatch(content); m != nil {
			if amount, ok := parseAmount(m[1]); ok {
				set("total", strconv.FormatFloat(amount, 'f', 2, 64), 0.9)
			}
		} else if m := anyMoneyPattern.FindStringSubmatch(content); m != nil {
			if amount, ok := parseAmount(m[1]); ok {
				set("total", strconv.FormatFloat(amount, 'f', 2, 64), 0.5)
			}
		}
		if date, c := findDate(content); date != "" {
			set("date", date, c)
		}
		if m := billToPattern.FindStringSubmatch(content); m != nil {
			set("counterpart", m[1], 0.7)
		}

	case types.DocTypeContract:
		if m := betweenPattern.FindStringSubmatch(content); m != nil {
			set("parties", strings.TrimSpace(m[1])+"; "+strings.TrimSpace(m[2]), 0.8)
		}
		if m := effectivePattern.FindStringSubmatch(content); m != nil {
			set("effective_date", m[1], 0.8)
		} else if date, c := findDate(content); date != "" {
			set("effective_date", date, c*0.6)
		}

	case types.DocTypeReport:
		set("title", firstLine(content), 0.6)
		if m := periodPattern.FindStringSubmatch(content); m != nil {
			set("period", m[1], 0.5)
		}

	case types.DocTypeSpreadsheet:
		set("title", firstLine(content), 0.5)

	case types.DocTypePresentation:
		set("title", firstLine(content), 0.5)
		if n := len(slidePattern.FindAllString(content, -1)); n > 0 {
			set("slide_count", strconv.Itoa(n), 0.6)
		}

	case types.DocTypeLetter:
		if m := dearPattern.FindStringSubmatch(content); m != nil {
			set("recipient", m[1], 0.7)
		}
		if date, c := findDate(content); date != "" {
			set("date", date, c)
		}
	}

	return fields, conf
}

// parseAmount converts a matched money token like "$1,250.00" to a float.
func parseAmount(token string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', ' ':
			return -1
		}
		return r
	}, token)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

func findDate(content string) (string, float64) {
	if m := isoDatePattern.FindStringSubmatch(content); m != nil {
		return m[1], 0.9
	}
	if m := slashDatePattern.FindStringSubmatch(content); m != nil {
		return m[1], 0.7
	}
	return "", 0
}

func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 120 {
				line = line[:120]
			}
			return line
		}
	}
	return ""
}
