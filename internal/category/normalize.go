package category

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const maxSuggestions = 5

// Aliases maps common English spellings to the standard category name.
var Aliases = map[string]string{
	"it":               ComputerIT,
	"computer":         ComputerIT,
	"computers":        ComputerIT,
	"programming":      ComputerIT,
	"literature":       Literature,
	"fiction":          Literature,
	"science":          Science,
	"philosophy":       Philosophy,
	"psychology":       Philosophy,
	"history":          History,
	"biography":        History,
	"arts":             Arts,
	"art":              Arts,
	"music":            Arts,
	"language":         Language,
	"languages":        Language,
	"social science":   SocialScience,
	"social sciences":  SocialScience,
	"economics":        SocialScience,
	"natural science":  NaturalScience,
	"natural sciences": NaturalScience,
	"mathematics":      NaturalScience,
	"technology":       Technology,
	"engineering":      Technology,
	"medicine":         Technology,
	"religion":         Religion,
	"general":          General,
	"reference":        General,
}

// fold is safe for concurrent use; cases.Caser is not, so a fresh one is
// created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Normalize trims surrounding and repeated whitespace and composes Unicode to
// NFC so that visually identical Hangul compares equal. Empty input yields "".
func Normalize(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Canonical normalizes s and resolves known aliases to a standard name.
// Unknown categories are returned normalized but otherwise unchanged.
func Canonical(s string) string {
	s = Normalize(s)
	if s == "" {
		return ""
	}
	if std, ok := Aliases[fold(s)]; ok {
		return std
	}
	return s
}

// Expand returns the category followed by its standard sub-categories when
// includeSub is set.
func Expand(name string, includeSub bool) []string {
	name = Canonical(name)
	if name == "" {
		return nil
	}
	out := []string{name}
	if includeSub {
		out = append(out, SubCategories(name)...)
	}
	return out
}

// Suggest returns up to five standard categories containing input,
// compared case-insensitively.
func Suggest(input string) []string {
	needle := fold(Normalize(input))
	if needle == "" {
		return []string{}
	}

	out := make([]string, 0, maxSuggestions)
	for _, s := range Standard {
		if strings.Contains(fold(s.Name), needle) {
			out = append(out, s.Name)
		}
		if len(out) == maxSuggestions {
			break
		}
	}

	// Aliases let English input reach Korean names.
	if std, ok := Aliases[needle]; ok && !slices.Contains(out, std) && len(out) < maxSuggestions {
		out = append(out, std)
	}
	return out
}

// Merge returns the standard names followed by any extra names not already
// present, preserving order.
func Merge(extra []string) []string {
	out := Names()
	for _, name := range extra {
		name = Normalize(name)
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
