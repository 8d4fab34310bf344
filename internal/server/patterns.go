package server

import (
	"errors"
	"net/http"

	"github.com/kwalker7631/kyo-qa-tool/internal/common"
)

type patternsPayload struct {
	ModelPatterns []string `json:"model_patterns"`
	QAPatterns    []string `json:"qa_patterns"`
}

func (s *Service) handleGetPatterns(w http.ResponseWriter, _ *http.Request) {
	model, qa := s.patterns.Strings()
	WriteJSON(w, http.StatusOK, patternsPayload{ModelPatterns: model, QAPatterns: qa})
}

// handleSavePatterns validates and persists both pattern lists atomically:
// one invalid pattern rejects the whole write and leaves the stored set
// unchanged.
func (s *Service) handleSavePatterns(w http.ResponseWriter, r *http.Request) {
	var payload patternsPayload
	if !DecodeJSON(w, r, &payload) {
		return
	}

	if err := s.patterns.Save(payload.ModelPatterns, payload.QAPatterns); err != nil {
		code := http.StatusInternalServerError
		errCode := "save_failed"
		if errors.Is(err, common.ErrValidation) {
			code = http.StatusBadRequest
			errCode = "invalid_pattern"
		}
		WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: err})
		return
	}

	s.logger.Info("patterns.updated",
		"model_count", len(payload.ModelPatterns),
		"qa_count", len(payload.QAPatterns),
	)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
