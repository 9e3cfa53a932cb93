package issn

import (
	"strconv"
	"strings"
)

// CheckDigit computes the ISSN check character for the first seven digits.
// Returns an empty string if the input is not seven decimal digits.
func CheckDigit(digits string) string {
	if len(digits) != 7 {
		return ""
	}
	sum := 0
	for i, c := range digits {
		d, err := strconv.Atoi(string(c))
		if err != nil {
			return ""
		}
		sum += d * (8 - i)
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return "X"
	}
	return strconv.Itoa(check)
}

// Normalize returns the canonical NNNN-NNNC form of an ISSN.
// Returns an empty string if the input is not a valid ISSN.
func Normalize(s string) string {
	compact := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	if len(compact) != 8 {
		return ""
	}
	check := CheckDigit(compact[:7])
	if check == "" || check != compact[7:] {
		return ""
	}
	return compact[:4] + "-" + compact[4:]
}

// Valid reports whether s is a well formed ISSN with a correct check character.
func Valid(s string) bool {
	return Normalize(s) != ""
}
