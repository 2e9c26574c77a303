package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/petal-labs/verdant/core"
)

// imagePayload is an image sent as a data URL or bare base64 with a MIME type.
type imagePayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType,omitempty"`
}

func (p imagePayload) image() core.Image {
	return core.Image{Base64: strings.TrimSpace(p.Data), MimeType: p.MimeType}
}

type editRequest struct {
	Image  imagePayload `json:"image"`
	Prompt string       `json:"prompt"`
}

type inpaintRequest struct {
	Image  imagePayload `json:"image"`
	Mask   imagePayload `json:"mask"`
	Prompt string       `json:"prompt"`
}

type improvePromptRequest struct {
	Prompt string `json:"prompt"`
}

type improvePromptResponse struct {
	Prompt string `json:"prompt"`
}

type analyzeRequest struct {
	Image    imagePayload `json:"image"`
	Language string       `json:"language,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.badRequest(w, r, "prompt is required")
		return
	}

	result, err := s.svc.EditImage(r.Context(), req.Image.image(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) inpaint(w http.ResponseWriter, r *http.Request) {
	var req inpaintRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.badRequest(w, r, "prompt is required")
		return
	}
	if strings.TrimSpace(req.Mask.Data) == "" {
		s.badRequest(w, r, "mask is required")
		return
	}

	result, err := s.svc.EditImageWithMask(r.Context(), req.Image.image(), req.Mask.image(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) improvePrompt(w http.ResponseWriter, r *http.Request) {
	var req improvePromptRequest
	if !s.decode(w, r, &req) {
		return
	}

	improved, err := s.svc.ImprovePrompt(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, improvePromptResponse{Prompt: improved})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	lang := req.Language
	if lang == "" {
		lang = s.language
	}

	result, err := s.svc.AnalyzeImage(r.Context(), req.Image.image(), lang)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decode reads a single JSON object into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeInvalidRequest,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		s.badRequest(w, r, "invalid JSON body: "+err.Error())
		return false
	}
	if _, err := dec.Token(); err != io.EOF {
		s.badRequest(w, r, "request body must contain a single JSON object")
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.logger.Debug("rejected request",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("reason", msg),
	)
	writeError(w, http.StatusBadRequest, CodeInvalidRequest, msg)
}

// fail maps an operation error to its HTTP status and stable code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	s.logger.Error("operation failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("code", code),
		zap.Error(err),
	)
	writeError(w, status, code, publicMessage(code, err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
