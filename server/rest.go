package server

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/room4-2/dinedialog/messages"
	"github.com/room4-2/dinedialog/session"
)

const maxBodySize = 16 * 1024

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	conv, err := s.sessionManager.CreateSession(r.Context(), "rest")
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, messages.ErrCodeSessionFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, messages.CreateSessionResponse{
		SessionID: conv.ID,
		Prompt:    conv.Prompt(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.sessionManager.GetSession(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, messages.ErrCodeSessionNotFound, session.ErrSessionNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, conv.View())
}

func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, messages.ErrCodeInvalidMessage, "Unreadable body")
		return
	}
	payload, err := messages.DecodeUtterance(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, messages.ErrCodeInvalidMessage, err.Error())
		return
	}

	turn, err := s.sessionManager.Submit(r.Context(), id, payload.Text)
	if err != nil {
		writeError(w, statusFor(err), session.ErrorCode(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, messages.PromptPayload{
		Text:     turn.Prompt,
		State:    string(turn.State),
		Act:      string(turn.Act),
		Complete: turn.Done,
	})

	// Completed dialogs are dropped once the final prompt is out
	if turn.Done {
		if err := s.sessionManager.RemoveSession(r.Context(), id, session.ReasonComplete); err != nil {
			s.logger.Debug("remove completed session", zap.Error(err))
		}
	}
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.sessionManager.Restart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), session.ErrorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessionManager.RemoveSession(r.Context(), r.PathValue("id"), session.ReasonDeleted); err != nil {
		writeError(w, statusFor(err), session.ErrorCode(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrSessionComplete):
		return http.StatusConflict
	case errors.Is(err, session.ErrMaxSessions):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := messages.Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, messages.ErrorPayload{Code: code, Message: message})
}
