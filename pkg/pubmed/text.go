package pubmed

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// normalizeText NFC-normalises s and collapses every whitespace run
// (including newlines, tabs and U+205F) into a single space.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// appendUnique appends the values not already present in dst, preserving
// first-occurrence order so set-valued fields serialise deterministically.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, d := range dst {
			if d == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

var (
	yearPattern = regexp.MustCompile(`\b(\d{4})\b`)
	monthNames  = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

func parseMonth(s string) (time.Month, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	if len(s) < 3 {
		return 0, false
	}
	m, ok := monthNames[strings.ToLower(s[:3])]
	return m, ok
}

// parseDate renders a PubMed date element (Year/Month/Day or MedlineDate) at
// the precision the source provides. On a bad component it returns the
// prefix that did parse together with an error describing the bad value.
func parseDate(n *Node) (string, error) {
	year := n.ChildText("Year")
	if year == "" {
		md := n.ChildText("MedlineDate")
		if md == "" {
			return "", nil
		}
		if m := yearPattern.FindString(md); m != "" {
			return m, nil
		}
		return "", fmt.Errorf("no year in medline date %q", md)
	}

	y, err := strconv.Atoi(year)
	if err != nil || y < 1000 || y > 9999 {
		return "", fmt.Errorf("invalid year %q", year)
	}
	out := fmt.Sprintf("%04d", y)

	month := n.ChildText("Month")
	if month == "" {
		return out, nil
	}
	m, ok := parseMonth(month)
	if !ok {
		return out, fmt.Errorf("invalid month %q", month)
	}
	out += fmt.Sprintf("-%02d", int(m))

	day := n.ChildText("Day")
	if day == "" {
		return out, nil
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Day() != d {
		return out, fmt.Errorf("invalid day %q", day)
	}

	return out + fmt.Sprintf("-%02d", d), nil
}
