package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/mdchunk/internal/chunker"
	"github.com/dgallion1/mdchunk/internal/source"
)

type chunkRequest struct {
	InputText string `json:"input_text"`
	chunker.Options
}

type chunkResponse struct {
	Chunks []string `json:"chunks"`
	Count  int      `json:"count"`
	Title  string   `json:"title,omitempty"`
}

// defaultOptions applies the server-wide LLM settings to the invocation
// defaults.
func (s *Server) defaultOptions() chunker.Options {
	opts := chunker.DefaultOptions()
	opts.LLMModel = s.cfg.LLMDefaultModel
	opts.LLMTimeout = s.cfg.LLMTimeout
	opts.HeadingTitleLimit = s.cfg.HeadingTitleLimit
	return opts
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	req := chunkRequest{Options: s.defaultOptions()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		case errors.As(err, &typeErr):
			jsonError(w, fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type), http.StatusBadRequest)
		default:
			jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		}
		return
	}

	s.writeChunks(w, r, req.InputText, req.Options)
}

func (s *Server) handleChunkFile(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !source.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	opts, err := s.formOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := source.Load(bytes.NewReader(data), filename, source.Options{
		PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext,
		MaxBytes:             s.cfg.MaxUploadBytes,
	})
	if err != nil {
		s.log.Warn("load upload failed", "filename", filename, "error", err)
		jsonError(w, "failed to read "+filename+": "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if opts.FileTitle == "" {
		opts.FileTitle = doc.Title
	}

	s.writeChunks(w, r, doc.Markdown, opts)
}

func (s *Server) writeChunks(w http.ResponseWriter, r *http.Request, input string, opts chunker.Options) {
	chunks, err := s.engine.Run(r.Context(), input, opts)
	if err != nil {
		var cfgErr *chunker.ConfigError
		var inErr *chunker.InputError
		if errors.As(err, &cfgErr) || errors.As(err, &inErr) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("chunking failed", "error", err)
		jsonError(w, "chunking failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chunkResponse{
		Chunks: chunks,
		Count:  len(chunks),
		Title:  opts.FileTitle,
	})
}

// formOptions reads the invocation parameters from multipart form fields.
func (s *Server) formOptions(r *http.Request) (chunker.Options, error) {
	opts := s.defaultOptions()
	opts.FileTitle = strings.TrimSpace(r.FormValue("file_title"))
	opts.LLMAPIBase = r.FormValue("llm_api_base")
	opts.LLMAPIKey = r.FormValue("llm_api_key")
	if v := r.FormValue("llm_model"); v != "" {
		opts.LLMModel = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"heading_level", &opts.HeadingLevel},
		{"heading_title_limit", &opts.HeadingTitleLimit},
	}
	for _, f := range ints {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("%s must be an integer, got %q", f.name, v)
		}
		*f.dst = n
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"add_metadata", &opts.AddMetadata},
		{"remove_extra_spaces", &opts.RemoveExtraSpaces},
		{"remove_urls_emails", &opts.RemoveURLsEmails},
		{"enable_llm_enhancement", &opts.EnableLLM},
	}
	for _, f := range flags {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%s must be a boolean, got %q", f.name, v)
		}
		*f.dst = b
	}
	return opts, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
