// Package patterns manages the user-editable extraction rules: regular
// expressions for model identifiers and QA/service-bulletin numbers, kept in
// a JSON file that an administrator edits through the API.
package patterns

import "regexp"

// Built-in defaults used when the store file is absent or unreadable.
var (
	DefaultModelPatterns = []string{
		`\bFS-\d+[A-Z]*\b`,
		`\bKM-\d+[A-Z]*\b`,
		`\bECOSYS\s+[A-Z]+\d+[a-z]*\b`,
		`\bTASKalfa\s+\d+[a-z]*\b`,
	}
	DefaultQAPatterns = []string{
		`\bQA-\d+\b`,
		`\bSB-\d+\b`,
	}
)

// Rewrite is a literal substring replacement applied to matched model
// strings. Rules are applied in slice order so results are deterministic.
type Rewrite struct {
	From string
	To   string
}

// StandardizationRules normalizes hyphenated model prefixes into the spaced
// spelling used in reports.
var StandardizationRules = []Rewrite{
	{From: "TASKalfa-", To: "TASKalfa "},
	{From: "ECOSYS-", To: "ECOSYS "},
}

// UnwantedAuthors lists author values that are system artifacts, not people;
// an extracted author equal to one of these is treated as absent.
var UnwantedAuthors = []string{"Knowledge Import"}

// Ruleset is the compiled form of the pattern store handed to the extractor.
type Ruleset struct {
	ModelPatterns []*regexp.Regexp
	QAPatterns    []*regexp.Regexp
	Standardize   []Rewrite
	Unwanted      []string
}

// compile turns pattern strings into case-insensitive regexps, dropping the
// ones that fail to compile. Returns the survivors and the bad inputs.
func compile(exprs []string) (compiled []*regexp.Regexp, bad []string) {
	for _, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			bad = append(bad, expr)
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled, bad
}

// defaultRuleset compiles the built-in patterns. The defaults are known-good,
// so this never yields an empty group.
func defaultRuleset() Ruleset {
	model, _ := compile(DefaultModelPatterns)
	qa, _ := compile(DefaultQAPatterns)
	return Ruleset{
		ModelPatterns: model,
		QAPatterns:    qa,
		Standardize:   StandardizationRules,
		Unwanted:      UnwantedAuthors,
	}
}
