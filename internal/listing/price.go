package listing

import (
	"regexp"
	"strconv"
)

var amountRegex = regexp.MustCompile(`\d+(\.\d{2})?`)

// ParsePrice returns the first currency amount found in text.
// A price range such as "$10.00 to $15.00" yields the first amount.
func ParsePrice(text string) (float64, bool) {
	match := amountRegex.FindString(text)
	if match == "" {
		return 0, false
	}

	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
