// Package httpapi exposes the custody service over a JSON REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/securecloudx/securecloudx/internal/common"
	"github.com/securecloudx/securecloudx/internal/logging"
	"github.com/securecloudx/securecloudx/internal/server/models"
	"github.com/securecloudx/securecloudx/internal/server/services"
)

// maxUploadBytes is the largest accepted upload; bigger files get a 413.
const maxUploadBytes = 64 << 20

type handler struct {
	users   *services.UserService
	custody *services.CustodyService
	logger  logging.Logger
	secret  []byte
}

func newHandler(users *services.UserService, custody *services.CustodyService, logger logging.Logger, secret []byte) *handler {
	return &handler{users: users, custody: custody, logger: logger, secret: secret}
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/upload", h.withAuth(h.upload))
	mux.HandleFunc("GET /api/download/{file_id}", h.withAuth(h.download))
	mux.HandleFunc("POST /api/share", h.withAuth(h.share))
	mux.HandleFunc("GET /api/files", h.withAuth(h.listFiles))
	mux.HandleFunc("GET /api/chain", h.chain)
	mux.HandleFunc("GET /api/users", h.listUsers)
	mux.HandleFunc("GET /api/health", h.health)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		h.logger.Error(r.Context(), "register failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":    user.ID,
		"public_key": user.PublicKeyPEM,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error(r.Context(), "login failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer part.Close()

	// Read one byte past the limit so an oversized part is rejected rather
	// than issued truncated.
	data, err := io.ReadAll(io.LimitReader(part, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "error reading file")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
		return
	}

	file, err := h.custody.Issue(r.Context(), userID, header.Filename, data)
	if err != nil {
		h.logger.Error(r.Context(), "upload failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"file_id":      file.ID,
		"ledger_index": file.LedgerIndex,
	})
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	fileID := r.PathValue("file_id")

	file, plaintext, err := h.custody.Retrieve(r.Context(), fileID, userID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		case errors.Is(err, common.ErrorAccessDenied):
			writeError(w, http.StatusForbidden, "access denied")
		default:
			// Wrong key and corrupt data are indistinguishable on purpose.
			h.logger.Error(r.Context(), "download failed", "file_id", fileID, "error", err.Error())
			writeError(w, http.StatusInternalServerError, "decryption failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(plaintext)
}

type shareRequest struct {
	FileID    string `json:"file_id"`
	Recipient string `json:"recipient"`
}

func (h *handler) share(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.FileID == "" || req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "file_id and recipient are required")
		return
	}

	recipient, err := h.users.GetByUsername(r.Context(), req.Recipient)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "recipient not found")
			return
		}
		h.logger.Error(r.Context(), "share failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "share failed")
		return
	}

	index, err := h.custody.Grant(r.Context(), req.FileID, userID, recipient.ID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		case errors.Is(err, common.ErrorAccessDenied):
			writeError(w, http.StatusForbidden, "access denied")
		default:
			h.logger.Error(r.Context(), "share failed", "file_id", req.FileID, "error", err.Error())
			writeError(w, http.StatusInternalServerError, "share failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"ledger_index": index})
}

type fileInfo struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	OwnerID     string `json:"owner_id"`
	LedgerIndex int    `json:"ledger_index"`
}

func toFileInfos(files []*models.File) []fileInfo {
	out := make([]fileInfo, 0, len(files))
	for _, f := range files {
		out = append(out, fileInfo{FileID: f.ID, Filename: f.Filename, OwnerID: f.OwnerID, LedgerIndex: f.LedgerIndex})
	}
	return out
}

func (h *handler) listFiles(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	owned, shared, err := h.custody.ListFiles(r.Context(), userID)
	if err != nil {
		h.logger.Error(r.Context(), "list files failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"owned":          toFileInfos(owned),
		"shared_with_me": toFileInfos(shared),
	})
}

func (h *handler) chain(w http.ResponseWriter, r *http.Request) {
	valid, firstBad, records := h.custody.Audit(r.Context())

	resp := map[string]any{
		"length":   len(records),
		"is_valid": valid,
		"records":  records,
	}
	if !valid {
		resp["first_invalid_index"] = firstBad
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "list users failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	type userInfo struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	out := make([]userInfo, 0, len(list))
	for _, u := range list {
		out = append(out, userInfo{UserID: u.ID, Username: u.UserName})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	valid, _, records := h.custody.Audit(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"ledger_length": len(records),
		"ledger_valid":  valid,
	})
}
