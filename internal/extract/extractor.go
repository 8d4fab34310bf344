// Package extract finds structured fields (model identifiers, QA numbers,
// author) in document text via the configured pattern ruleset.
package extract

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kwalker7631/kyo-qa-tool/internal/patterns"
)

// FieldRecord is the structured extraction result for one document.
// Filename is attached by the orchestrator, not here.
type FieldRecord struct {
	Filename  string `json:"filename,omitempty"`
	Models    string `json:"models"`
	Author    string `json:"author"`
	QANumbers string `json:"qa_numbers"`
}

// ModelsNotFound is rendered when no model identifier matched.
const ModelsNotFound = "Not Found"

var reAuthor = regexp.MustCompile(`(?im)^Author:\s*(.*)$`)

// Extract applies the ruleset to the document text plus its filename and
// returns a normalized field record. Pure function of its inputs: identical
// (text, filename, rules) always yields an identical record.
func Extract(text, filename string, rules patterns.Ruleset, logger *slog.Logger) FieldRecord {
	if logger == nil {
		logger = slog.Default()
	}

	// Identifiers sometimes appear only in the filename, with underscores
	// standing in for spaces.
	corpus := text + "\n" + strings.ReplaceAll(filename, "_", " ")

	models := matchAll(rules.ModelPatterns, corpus)
	standardized := make(map[string]struct{}, len(models))
	for m := range models {
		for _, rule := range rules.Standardize {
			m = strings.ReplaceAll(m, rule.From, rule.To)
		}
		standardized[m] = struct{}{}
	}

	qa := matchAll(rules.QAPatterns, corpus)

	author := ""
	if m := reAuthor.FindStringSubmatch(text); m != nil {
		found := strings.TrimSpace(m[1])
		if found != "" && !contains(rules.Unwanted, found) {
			author = found
		}
	}

	rec := FieldRecord{
		Models:    joinSorted(standardized, ModelsNotFound),
		Author:    author,
		QANumbers: joinSorted(qa, ""),
	}
	logger.Debug("extract.fields",
		"filename", filename,
		"models", rec.Models,
		"author", rec.Author,
		"qa_numbers", rec.QANumbers,
	)
	return rec
}

// matchAll collects the trimmed, deduplicated matches of every pattern.
// Patterns with a capture group contribute the first group, others the whole
// match.
func matchAll(res []*regexp.Regexp, corpus string) map[string]struct{} {
	found := map[string]struct{}{}
	for _, re := range res {
		for _, m := range re.FindAllStringSubmatch(corpus, -1) {
			v := m[0]
			if re.NumSubexp() > 0 && m[1] != "" {
				v = m[1]
			}
			v = strings.TrimSpace(v)
			if v != "" {
				found[v] = struct{}{}
			}
		}
	}
	return found
}

// joinSorted renders a match set sorted ascending and comma-space joined so
// output is reproducible regardless of map iteration order.
func joinSorted(set map[string]struct{}, empty string) string {
	if len(set) == 0 {
		return empty
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
