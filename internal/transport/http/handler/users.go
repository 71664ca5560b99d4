package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mealtrack-api/internal/application/user"
	"github.com/mealtrack-api/internal/domain"
	"github.com/mealtrack-api/internal/transport/http/middleware"
)

const maxPictureBytes = 5 << 20

// UserHandler exposes the profile endpoints for the authenticated user.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}
	u, err := h.svc.Get(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.svc.Update(r.Context(), claims.UserID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UploadPicture accepts a multipart form with a "file" field.
func (h *UserHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing credentials")
		return
	}
	if err := r.ParseMultipartForm(maxPictureBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	u, err := h.svc.UploadProfilePicture(r.Context(), claims.UserID, header.Filename, f, contentType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
