package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/mdchunk/internal/chunker"
	"github.com/dgallion1/mdchunk/internal/source"
)

type batchResult struct {
	Filename string   `json:"filename"`
	Title    string   `json:"title,omitempty"`
	Chunks   []string `json:"chunks,omitempty"`
	Count    int      `json:"count"`
	Error    string   `json:"error,omitempty"`
}

// handleChunkBatch chunks several uploaded files with the same parameters.
// Files are processed concurrently; results keep the upload order and a
// failing file does not fail the batch.
func (s *Server) handleChunkBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "batch exceeds max size", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	opts, err := s.formOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Parameter errors are the same for every file, so report them once.
	if err := opts.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := make([]batchResult, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(max(s.cfg.MaxConcurrentFiles, 1))
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			results[i] = s.chunkUpload(ctx, fh, opts)
			return nil
		})
	}
	g.Wait()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

func (s *Server) chunkUpload(ctx context.Context, fh *multipart.FileHeader, opts chunker.Options) batchResult {
	res := batchResult{Filename: sanitizeFilename(fh.Filename)}
	if !source.IsSupportedExtension(res.Filename) {
		res.Error = fmt.Sprintf("unsupported file type: %s", filepath.Ext(res.Filename))
		return res
	}

	f, err := fh.Open()
	if err != nil {
		res.Error = "failed to open file"
		return res
	}
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	f.Close()
	if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
		res.Error = "file too large or read error"
		return res
	}

	doc, err := source.Load(bytes.NewReader(data), res.Filename, source.Options{
		PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext,
		MaxBytes:             s.cfg.MaxUploadBytes,
	})
	if err != nil {
		s.log.Warn("load upload failed", "filename", res.Filename, "error", err)
		res.Error = err.Error()
		return res
	}
	if opts.FileTitle == "" {
		opts.FileTitle = doc.Title
	}
	res.Title = opts.FileTitle

	chunks, err := s.engine.Run(ctx, doc.Markdown, opts)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Chunks = chunks
	res.Count = len(chunks)
	return res
}
