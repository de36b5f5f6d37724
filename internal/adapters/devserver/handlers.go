package devserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hostiq/internal/domain"
)

const maxUploadBytes = 32 << 20

type Handlers struct{ S *Store }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// MountHandlers registers /healthz and the API under /api.
func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/auth/me", h.me)

			r.Get("/cleaner/assignments", h.listAssignments)
			r.Get("/cleaner/inspections", h.listCleanerInspections)

			r.Post("/inspections", h.createInspection)
			r.Get("/inspections/{id}", h.getInspection)
			r.Post("/inspections/{id}/photos", h.uploadPhoto)
			r.Post("/inspections/{id}/submit", h.submitInspection)
			r.Post("/inspections/{id}/reject", h.rejectInspection)
			r.Get("/reports/inspections/{id}", h.inspectionReport)

			r.Get("/owner/properties", h.listProperties)
			r.Post("/owner/properties", h.createProperty)
			r.Get("/owner/properties/{id}", h.getProperty)
			r.Get("/owner/cleaners", h.listCleaners)
			r.Get("/owner/stats", h.ownerStats)

			r.Get("/subscriptions/usage", h.usage)
			r.Get("/payments/history", h.paymentHistory)
			r.Get("/payments/methods", h.paymentMethods)
			r.Get("/room-templates", h.roomTemplates)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeStoreError maps store errors onto problem responses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, errNeedReason), errors.Is(err, errNoPhotos):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, errBadState), errors.Is(err, errNotReady):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers with v; GETs carry an ETag and honour If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "encode response")
		return
	}
	if r.Method == http.MethodGet && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "body must be a JSON object")
		return false
	}
	return true
}

func userJSON(u user) map[string]any {
	return map[string]any{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role}
}

// ---- auth ----

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	access, refresh, u, ok := h.S.login(in.Email, in.Password)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"user":         userJSON(u),
	})
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	access, ok := h.S.refreshAccess(in.RefreshToken)
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "unknown refresh token")
		return
	}
	writeJSON(w, r, http.StatusOK, domain.TokenPair{AccessToken: access})
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"user": userJSON(currentUser(r))})
}

// ---- cleaner ----

func (h *Handlers) listAssignments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"assignments": h.S.cleanerAssignments(cleanerScope(r))})
}

func (h *Handlers) listCleanerInspections(w http.ResponseWriter, r *http.Request) {
	// a bare array; the other lists come enveloped
	writeJSON(w, r, http.StatusOK, h.S.cleanerInspections(cleanerScope(r)))
}

// cleanerScope limits cleaner views to the caller; owners see everything.
func cleanerScope(r *http.Request) string {
	if u := currentUser(r); u.Role == "CLEANER" {
		return u.ID
	}
	return ""
}

// ---- inspections ----

func (h *Handlers) createInspection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UnitID       string `json:"unitId"`
		AssignmentID string `json:"assignmentId"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.UnitID) == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "unitId is required")
		return
	}
	out, err := h.S.createInspection(currentUser(r).ID, in.UnitID, in.AssignmentID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"inspection": out})
}

func (h *Handlers) getInspection(w http.ResponseWriter, r *http.Request) {
	out, err := h.S.readInspection(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"inspection": out})
}

func (h *Handlers) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "expected multipart/form-data")
		return
	}
	f, hdr, err := r.FormFile("photo")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "photo file is required")
		return
	}
	defer f.Close()
	n, err := io.Copy(io.Discard, f)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "read photo")
		return
	}
	roomName := strings.TrimSpace(r.FormValue("roomName"))
	if roomName == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "roomName is required")
		return
	}
	out, err := h.S.addPhoto(chi.URLParam(r, "id"), photo{
		RoomName: roomName,
		RoomType: strings.TrimSpace(r.FormValue("roomType")),
		Filename: hdr.Filename,
		Size:     n,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"photo": out})
}

func (h *Handlers) submitInspection(w http.ResponseWriter, r *http.Request) {
	out, err := h.S.submit(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"inspection": out})
}

func (h *Handlers) rejectInspection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.S.reject(chi.URLParam(r, "id"), in.Reason)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"inspection": out})
}

func (h *Handlers) inspectionReport(w http.ResponseWriter, r *http.Request) {
	out, err := h.S.report(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// ---- owner ----

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"properties": h.S.listProperties()})
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	out, err := h.S.getProperty(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"property": out})
}

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.NewProperty
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "name is required")
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"property": h.S.createProperty(in)})
}

func (h *Handlers) listCleaners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"data": h.S.cleaners()})
}

func (h *Handlers) ownerStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.S.stats())
}

// ---- billing ----

func (h *Handlers) usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"usage": h.S.usage()})
}

func (h *Handlers) paymentHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"payments": h.S.paymentHistory()})
}

func (h *Handlers) paymentMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"methods": []map[string]any{
		{"id": "pm-1", "brand": "visa", "last4": "4242", "expMonth": 12, "expYear": 2030, "default": true},
	}})
}

func (h *Handlers) roomTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"templates": roomTemplates()})
}
