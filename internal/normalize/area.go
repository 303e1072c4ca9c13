// Package normalize holds the small text normalizers the intake and
// eligibility paths share: land-area unit conversion, gender token
// classification, and loose number extraction. Everything here is total —
// malformed input degrades to a neutral value instead of an error, because
// the inputs are OCR text.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// unitFactor maps a fuzzy unit token to its acre conversion factor.
// Order matters: longer, more specific tokens are checked before "ha",
// and "ha" is prefix-matched so "1 bigha" does not read as hectares.
type unitFactor struct {
	token  string
	prefix bool
	factor float64
}

var unitFactors = []unitFactor{
	{token: "acre", factor: 1.0},
	{token: "hect", factor: 2.47105},
	{token: "sq m", factor: 0.000247105},
	{token: "sqm", factor: 0.000247105},
	{token: "sq ft", factor: 0.0000229568},
	{token: "sqft", factor: 0.0000229568},
	{token: "bigha", factor: 0.619},
	{token: "cent", factor: 0.0247},
	{token: "guntha", factor: 0.0247},
	{token: "ha", prefix: true, factor: 2.47105},
}

var areaRe = regexp.MustCompile(`([\d.]+)\s*([a-zA-Z ]+)?`)

// ToAcres parses a free-text area like "2 hectares" or "1.5 bigha" and
// returns its value in acres. No leading number yields 0. An unknown or
// missing unit is treated as acres already. ToAcres never fails.
func ToAcres(s string) float64 {
	m := areaRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	unit := strings.ToLower(strings.TrimSpace(m[2]))
	if unit == "" {
		return value
	}
	for _, u := range unitFactors {
		if u.prefix {
			if strings.HasPrefix(unit, u.token) {
				return value * u.factor
			}
		} else if strings.Contains(unit, u.token) {
			return value * u.factor
		}
	}
	return value
}

// FormatAcres rewrites a free-text area as "%.2f acres". Empty input stays
// empty; input with no leading number is returned unchanged.
func FormatAcres(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	if areaRe.FindStringSubmatch(strings.TrimSpace(s)) == nil {
		return s
	}
	return fmt.Sprintf("%.2f acres", ToAcres(s))
}
