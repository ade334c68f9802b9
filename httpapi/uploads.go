package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/MrEthical07/safeher/attachment"
	"go.uber.org/zap"
)

// multipartOverhead is the room left for multipart framing above the file
// size cap.
const multipartOverhead = 1 << 20

func (s *server) upload(w http.ResponseWriter, r *http.Request) {
	policy := s.engine.UploadPolicy()
	r.Body = http.MaxBytesReader(w, r.Body, policy.Limit()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeAPIError(w, badRequest("No file provided"))
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			writeAPIError(w, badRequest("No file provided"))
			return
		}
		if err != nil {
			s.uploadReadError(w, err, policy)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		att, err := s.engine.Upload(r.Context(), caller(r), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "File uploaded successfully",
			"file":    att,
		})
		return
	}
}

func (s *server) uploadReadError(w http.ResponseWriter, err error, policy attachment.Policy) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeAPIError(w, badRequest(policy.SizeError()))
		return
	}
	writeAPIError(w, badRequest("Malformed multipart body"))
}

func (s *server) serveUpload(w http.ResponseWriter, r *http.Request) {
	rc, obj, err := s.engine.OpenUpload(r.Context(), r.PathValue("filename"))
	if err != nil {
		if errors.Is(err, attachment.ErrInvalidName) {
			err = attachment.ErrNotFound
		}
		s.fail(w, err)
		return
	}
	defer rc.Close()

	h := w.Header()
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": obj.Name}))
	if obj.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("upload stream interrupted", zap.String("name", obj.Name), zap.Error(err))
	}
}
