package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pulkitv/epub-combiner-api/internal/epub"
	"github.com/pulkitv/epub-combiner-api/internal/http/response"
	"github.com/pulkitv/epub-combiner-api/internal/id"
)

// multipartMemoryLimit bounds how much of the upload is held in memory before
// spilling to temporary files.
const multipartMemoryLimit = 32 << 20

// handleMerge accepts N uploaded EPUB files under the "files" multipart field
// and returns the combined EPUB as an attachment.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	mergeID := id.MustGenerate("merge")
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Merge.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.RequestEntityTooLarge(w,
				fmt.Sprintf("upload exceeds the %d byte limit", s.cfg.Merge.MaxUploadBytes),
				s.logger)
			return
		}
		response.BadRequest(w, "request must be multipart/form-data with a files field", s.logger)
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads := r.MultipartForm.File["files"]
	if len(uploads) < s.cfg.Merge.MinBooks || len(uploads) > s.cfg.Merge.MaxBooks {
		response.BadRequest(w,
			fmt.Sprintf("between %d and %d files are required, got %d",
				s.cfg.Merge.MinBooks, s.cfg.Merge.MaxBooks, len(uploads)),
			s.logger)
		return
	}

	inputs := make([][]byte, 0, len(uploads))
	for _, fh := range uploads {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("cannot read uploaded file %q", fh.Filename), s.logger)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.BadRequest(w, fmt.Sprintf("cannot read uploaded file %q", fh.Filename), s.logger)
			return
		}
		inputs = append(inputs, data)
	}

	merged, report, err := epub.MergeWithReport(inputs)
	if err != nil {
		s.logger.Error("merge failed",
			"merge_id", mergeID,
			"books", len(inputs),
			"error", err,
			"duration", time.Since(start))
		response.InternalError(w, "failed to merge the uploaded files", s.logger)
		return
	}

	for _, warning := range report.Warnings {
		s.logger.Warn("merge warning", "merge_id", mergeID, "warning", warning)
	}
	s.logger.Info("merge completed",
		"merge_id", mergeID,
		"books", len(inputs),
		"output_bytes", len(merged),
		"warnings", len(report.Warnings),
		"duration", time.Since(start))

	w.Header().Set("Content-Type", epub.Mimetype)
	w.Header().Set("Content-Disposition", `attachment; filename="combined.epub"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(merged)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(merged); err != nil {
		s.logger.Error("failed to write merge response", "merge_id", mergeID, "error", err)
	}
}
