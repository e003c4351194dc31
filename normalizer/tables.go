package normalizer

import (
	"regexp"
	"strings"

	"github.com/trandvq/docsense/types"
)

var numericCell = regexp.MustCompile(`^-?[0-9][0-9.,]*$`)

// ExtractLineItems parses the table buffer produced by the external
// extractors into ordered row records. The buffer is one row per line with
// tab, semicolon or comma separated cells. Rows with no usable cells are
// skipped; an unparseable buffer yields an empty slice, never an error.
func ExtractLineItems(buffer string) []types.LineItem {
	var items []types.LineItem

	for _, line := range strings.Split(buffer, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells := splitRow(line)
		if len(cells) == 0 {
			continue
		}

		item := types.LineItem{Raw: line}
		numbers := make([]float64, 0, len(cells))
		for _, cell := range cells {
			if numericCell.MatchString(cell) {
				if v, ok := parseAmount(cell); ok {
					numbers = append(numbers, v)
					continue
				}
			}
			if item.Description == "" {
				item.Description = cell
			}
		}

		// Header rows carry no numbers and no later rows to describe.
		if item.Description == "" && len(numbers) == 0 {
			continue
		}

		// Convention from the extractors: quantity precedes amount, and the
		// amount is the last numeric cell in the row.
		if len(numbers) >= 2 {
			item.Quantity = numbers[0]
			item.Amount = numbers[len(numbers)-1]
		} else if len(numbers) == 1 {
			item.Amount = numbers[0]
		}

		items = append(items, item)
	}

	// A single row with only text is a header, not a line item.
	if len(items) == 1 && items[0].Amount == 0 && items[0].Quantity == 0 {
		return nil
	}

	return items
}

func splitRow(line string) []string {
	var rawCells []string
	switch {
	case strings.Contains(line, "\t"):
		rawCells = strings.Split(line, "\t")
	case strings.Contains(line, ";"):
		rawCells = strings.Split(line, ";")
	default:
		rawCells = strings.Split(line, ",")
	}

	cells := make([]string, 0, len(rawCells))
	for _, cell := range rawCells {
		cell = strings.TrimSpace(cell)
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}
