package service

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/trandvq/docsense/types"
)

// The comma alternative requires at least one ,ddd group; otherwise the
// leftmost-first alternation would split plain 4+ digit amounts ("1500"
// must not tokenize as 150 and 0).
var numericTokenPattern = regexp.MustCompile(`([$€£]?)\s?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`)

// computeAggregates scans section texts for numeric tokens and summarizes
// them. A currency symbol is reported only when every symbolled token
// agrees on it. Returns nil when no numbers were found.
func computeAggregates(texts []string) *types.AggregateStats {
	values := make([]float64, 0)
	currency := ""
	currencyConsistent := true

	for _, text := range texts {
		for _, match := range numericTokenPattern.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(match[2], ",", "")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			values = append(values, v)

			if sym := match[1]; sym != "" {
				if currency == "" {
					currency = sym
				} else if currency != sym {
					currencyConsistent = false
				}
			}
		}
	}

	if len(values) == 0 {
		return nil
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	stats := &types.AggregateStats{
		Count:   len(values),
		Sum:     round2(sum),
		Average: round2(sum / float64(len(values))),
		Median:  round2(median),
	}
	if currencyConsistent {
		stats.Currency = currency
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
