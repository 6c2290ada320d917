package quality

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the formats tried by the date-parse coercion, most
// specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
}

// coercionFractions attempts numeric and date coercion on every
// non-missing value of a free-text column and reports the success
// fraction for each.
func coercionFractions(cells []any) (numeric, date float64) {
	if len(cells) == 0 {
		return 0, 0
	}
	numOK, dateOK := 0, 0
	for _, cell := range cells {
		s, ok := cell.(string)
		if !ok {
			s = fmt.Sprintf("%v", cell)
		}
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			numOK++
		}
		if parsesAsDate(s) {
			dateOK++
		}
	}
	n := float64(len(cells))
	return float64(numOK) / n, float64(dateOK) / n
}

func parsesAsDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// cellKey renders a cell for distinctness counting. The type prefix keeps
// the string "1" distinct from the number 1.
func cellKey(cell any) string {
	return fmt.Sprintf("%T:%v", cell, cell)
}
