package patterns

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kwalker7631/kyo-qa-tool/internal/common"
)

// patternsFile is the on-disk shape of the store.
type patternsFile struct {
	ModelPatterns []string `json:"model_patterns"`
	QAPatterns    []string `json:"qa_patterns"`
}

// fileSchema constrains the store file to exactly two lists of strings.
const fileSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["model_patterns", "qa_patterns"],
	"properties": {
		"model_patterns": {"type": "array", "items": {"type": "string"}},
		"qa_patterns":    {"type": "array", "items": {"type": "string"}}
	}
}`

// Store loads and saves user-defined patterns. Reads fall back to the
// built-in defaults when the file is corrupt or missing; writes are
// all-or-nothing and validated before anything touches disk.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	schema *jsonschema.Schema
}

func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("patterns.json", bytes.NewReader([]byte(fileSchema))); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("patterns.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	s := &Store{path: path, logger: logger, schema: schema}
	s.initialize()
	return s, nil
}

// initialize writes the default pattern file if none exists yet.
func (s *Store) initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return
	}
	if err := s.write(patternsFile{
		ModelPatterns: DefaultModelPatterns,
		QAPatterns:    DefaultQAPatterns,
	}); err != nil {
		s.logger.Error("patterns.init.failed", "path", s.path, "error", err)
		return
	}
	s.logger.Info("patterns.init.defaults", "path", s.path)
}

// load reads and validates the store file.
func (s *Store) load() (patternsFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return patternsFile{}, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return patternsFile{}, fmt.Errorf("parse patterns file: %w", err)
	}
	if err := s.schema.Validate(v); err != nil {
		return patternsFile{}, fmt.Errorf("patterns file does not match schema: %w", err)
	}
	var pf patternsFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return patternsFile{}, err
	}
	return pf, nil
}

// Strings returns the raw pattern string lists for editing. Falls back to
// the defaults when the file cannot be read.
func (s *Store) Strings() (model, qa []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pf, err := s.load()
	if err != nil {
		s.logger.Error("patterns.load.failed", "path", s.path, "error", err)
		return DefaultModelPatterns, DefaultQAPatterns
	}
	return pf.ModelPatterns, pf.QAPatterns
}

// Ruleset returns the compiled extraction rules. Individually malformed
// patterns are dropped with a warning; total store unavailability falls back
// to the compiled built-in defaults so the extractor always has rules.
func (s *Store) Ruleset() Ruleset {
	s.mu.Lock()
	defer s.mu.Unlock()
	pf, err := s.load()
	if err != nil {
		s.logger.Error("patterns.load.failed", "path", s.path, "error", err)
		return defaultRuleset()
	}
	model, badModel := compile(pf.ModelPatterns)
	for _, expr := range badModel {
		s.logger.Warn("patterns.model.invalid", "pattern", expr)
	}
	qa, badQA := compile(pf.QAPatterns)
	for _, expr := range badQA {
		s.logger.Warn("patterns.qa.invalid", "pattern", expr)
	}
	return Ruleset{
		ModelPatterns: model,
		QAPatterns:    qa,
		Standardize:   StandardizationRules,
		Unwanted:      UnwantedAuthors,
	}
}

// Save validates that every pattern compiles and persists both lists.
// A single invalid pattern rejects the whole write; the previously stored
// set is left untouched.
func (s *Store) Save(model, qa []string) error {
	for _, expr := range model {
		if _, err := regexp.Compile("(?i)" + expr); err != nil {
			return common.NewAppError("PATTERN_INVALID",
				fmt.Sprintf("invalid model pattern %q", expr), errors.Join(common.ErrValidation, err))
		}
	}
	for _, expr := range qa {
		if _, err := regexp.Compile("(?i)" + expr); err != nil {
			return common.NewAppError("PATTERN_INVALID",
				fmt.Sprintf("invalid QA pattern %q", expr), errors.Join(common.ErrValidation, err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(patternsFile{ModelPatterns: model, QAPatterns: qa}); err != nil {
		return fmt.Errorf("save patterns: %w", err)
	}
	s.logger.Info("patterns.saved", "model_count", len(model), "qa_count", len(qa))
	return nil
}

// write persists via temp file + rename so a crashed write never leaves a
// half-written store behind.
func (s *Store) write(pf patternsFile) error {
	// nil slices marshal to null, which the schema rejects on the next read
	if pf.ModelPatterns == nil {
		pf.ModelPatterns = []string{}
	}
	if pf.QAPatterns == nil {
		pf.QAPatterns = []string{}
	}
	data, err := json.MarshalIndent(pf, "", "    ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".patterns-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
