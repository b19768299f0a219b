package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"chatlink/internal/config"
	"chatlink/internal/protocol"
)

// 32 MB max memory for the non-file parts of multipart forms.
const defaultMaxMemory = 32 << 20

// UploadHandler accepts media uploads for image messages.
type UploadHandler struct {
	media protocol.MediaStorage
	cfg   config.StorageConfig
}

// NewUploadHandler creates a new UploadHandler instance.
func NewUploadHandler(media protocol.MediaStorage, cfg config.StorageConfig) *UploadHandler {
	return &UploadHandler{media: media, cfg: cfg}
}

// Upload stores the multipart "file" field and returns the resulting file
// info, including the URL to embed in an image message.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	maxUploadSize := h.cfg.MaxFileSizeMB << 20
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		if err.Error() == "http: request body too large" {
			msg := fmt.Sprintf("file too large, limit is %d MB", maxUploadSize>>20)
			writeJSONError(w, msg, http.StatusRequestEntityTooLarge)
		} else {
			writeJSONError(w, fmt.Sprintf("failed to parse form: %v", err), http.StatusBadRequest)
		}
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			writeJSONError(w, "missing 'file' field", http.StatusBadRequest)
		} else {
			writeJSONError(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	mimeType := handler.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeJSONError(w, "only image uploads are accepted", http.StatusUnsupportedMediaType)
		return
	}

	if handler.Size > maxUploadSize {
		msg := fmt.Sprintf("file too large, limit is %d MB", maxUploadSize>>20)
		writeJSONError(w, msg, http.StatusRequestEntityTooLarge)
		return
	}

	fileInfo, err := h.media.Upload(r.Context(), file, handler.Size, handler.Filename, mimeType)
	if err != nil {
		log.Printf("failed to store uploaded file %q: %v", handler.Filename, err)
		writeJSONError(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, fileInfo)
}
