package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kwalker7631/kyo-qa-tool/constants"
	"github.com/kwalker7631/kyo-qa-tool/internal/job"
)

// Status message payloads consumed by the polling UI.
type logMessage struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type progressMessage struct {
	Type    string `json:"type"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

type fileCompleteMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type reviewItemMessage struct {
	Type string         `json:"type"`
	Data reviewItemData `json:"data"`
}

type reviewItemData struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type finishMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// handleStatus reconstructs an ordered message list from the current job's
// snapshot. Before any job is submitted it returns an empty list.
func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	id := s.getCurrentJob()
	if id == uuid.Nil {
		WriteJSON(w, http.StatusOK, []any{})
		return
	}
	snap, ok := s.store.Snapshot(id)
	if !ok {
		WriteJSON(w, http.StatusOK, []any{})
		return
	}
	WriteJSON(w, http.StatusOK, statusMessages(snap))
}

func statusMessages(snap job.Snapshot) []any {
	messages := make([]any, 0, len(snap.Log)+len(snap.Outcomes)+2)

	for _, line := range snap.Log {
		messages = append(messages, logMessage{Type: "log", Msg: line})
	}

	if snap.Total > 0 {
		messages = append(messages, progressMessage{
			Type:    "progress",
			Current: snap.Processed,
			Total:   snap.Total,
		})
	}

	for _, o := range snap.Outcomes {
		messages = append(messages, fileCompleteMessage{Type: "file_complete", Status: string(o.Status)})
		if o.Status == constants.OutcomeReview {
			messages = append(messages, reviewItemMessage{
				Type: "review_item",
				Data: reviewItemData{Filename: o.Filename, Reason: o.Reason},
			})
		}
	}

	switch snap.Status {
	case constants.JobStatusComplete:
		messages = append(messages, finishMessage{Type: "finish", Status: "Complete"})
	case constants.JobStatusError:
		messages = append(messages, finishMessage{Type: "finish", Status: "Error"})
	}

	return messages
}

// handleResult serves the completed job's report artifact.
func (s *Service) handleResult(w http.ResponseWriter, r *http.Request) {
	id := s.getCurrentJob()
	if id == uuid.Nil {
		http.NotFound(w, r)
		return
	}
	snap, ok := s.store.Snapshot(id)
	if !ok || snap.ReportPath == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", "attachment")
	http.ServeFile(w, r, snap.ReportPath)
}
