package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/channel"
	"github.com/spigell/interviewer/internal/intake"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
)

var errBadRequest = errors.New("bad request")

type interviewSummary struct {
	InterviewID  string           `json:"interview_id"`
	Status       interview.Status `json:"status"`
	CandidateURL string           `json:"candidate_url"`
}

func summarize(s *interview.Session) interviewSummary {
	return interviewSummary{InterviewID: s.ID, Status: s.Status, CandidateURL: "/interview/" + s.ID}
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handlers) createInterview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	cv, cvHeader, err := formFile(r, "cv")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer cv.Close()

	jd, jdHeader, err := formFile(r, "jd")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer jd.Close()

	maxQuestions := 0
	if raw := strings.TrimSpace(r.FormValue("max_questions")); raw != "" {
		if maxQuestions, err = strconv.Atoi(raw); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: max_questions must be an integer", interview.ErrInvalidConfig))
			return
		}
	}

	session, err := h.intake.Create(r.Context(), intake.CreateRequest{
		CV:              intake.Upload{Name: cvHeader.Filename, Reader: cv},
		JD:              intake.Upload{Name: jdHeader.Filename, Reader: jd},
		SystemPrompt:    r.FormValue("system_prompt"),
		InterviewerName: r.FormValue("interviewer_name"),
		MaxQuestions:    maxQuestions,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summarize(session))
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s file is required", interview.ErrInvalidConfig, field)
	}
	return f, header, nil
}

func (h *handlers) updateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var upd intake.PromptUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid JSON body", errBadRequest))
		return
	}

	if _, err := h.intake.UpdateSystemPrompt(r.Context(), chi.URLParam(r, "id"), upd); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "System prompt updated successfully"})
}

func (h *handlers) joinInterview(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"interview_id":     s.ID,
		"status":           s.Status,
		"interviewer_name": s.InterviewerName,
	})
}

func (h *handlers) liveKitToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.tokens == nil {
		writeDetail(w, http.StatusServiceUnavailable, "LiveKit is not configured")
		return
	}

	participant := r.URL.Query().Get("participant_name")
	if strings.TrimSpace(participant) == "" {
		h.writeError(w, r, fmt.Errorf("%w: participant_name is required", errBadRequest))
		return
	}

	token, err := h.tokens.Issue(id, participant)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "url": h.tokens.URL()})
}

func (h *handlers) listInterviews(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]interviewSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, summarize(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getInterview(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) getResults(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := s.Results()
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: interview not completed yet", interview.ErrInvalidState))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// interviewSocket upgrades the connection and runs the interview on it until
// the session ends.
func (h *handlers) interviewSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	log := logger.WithInterview(h.logger, id)
	conn := channel.New(ws, h.channelOpts, log)

	if err := h.sessions.RunSession(r.Context(), id, conn); err != nil {
		log.Info("interview session ended with error", zap.Error(err))
	}
}
