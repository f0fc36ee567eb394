package fakedesk

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if s.blacklisted(claims.ID) {
		writeError(w, http.StatusForbidden, "You are blacklisted from chat")
		return
	}
	rm := s.roomFor(claims.ID)
	writeJSON(w, http.StatusOK, rm.info())
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	rm, ok := s.lookupRoom(chi.URLParam(r, "roomId"))
	if !ok {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if rm.owner != claims.ID {
		writeError(w, http.StatusForbidden, "not your room")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": rm.history()})
}

func (s *Server) getQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.FAQ)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = "general"
	}
	name := uuid.NewString() + "-" + path.Base(header.Filename)
	key := folder + "/" + name

	s.mu.Lock()
	s.uploads[key] = data
	s.mu.Unlock()

	s.log.Info("upload stored", zap.String("key", key), zap.Int("bytes", len(data)))
	writeJSON(w, http.StatusOK, map[string]string{"url": baseURL(r) + "/files/" + key})
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "folder") + "/" + chi.URLParam(r, "name")
	s.mu.Lock()
	data, ok := s.uploads[key]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.ToLower(fwd)
	}
	return scheme + "://" + r.Host
}

// Upload returns the bytes stored under url, if any.
func (s *Server) Upload(url string) ([]byte, bool) {
	_, key, ok := strings.Cut(url, "/files/")
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.uploads[key]
	return data, ok
}

