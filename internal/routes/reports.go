package routes

import (
	"bytes"
	diffimage "design-diff/internal/diff/image"
	difftext "design-diff/internal/diff/text"
	"design-diff/internal/report"
	"design-diff/internal/storage"
	"design-diff/internal/store"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

func Report(records store.Store, structureDiffer difftext.Differ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		comparison, err := records.GetComparison(ctx, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to get comparison: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		baseline, err := records.GetBaseline(ctx, comparison.BaselineID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to get baseline: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var structure []byte
		if baseline.StructureJSON != "" && comparison.StructureJSON != "" {
			result, err := structureDiffer.Calculate([]byte(baseline.StructureJSON), []byte(comparison.StructureJSON))
			if err != nil {
				slog.WarnContext(ctx, fmt.Sprintf("failed to diff structure: %s", err), "comparisonId", comparison.ID)
			} else {
				structure = result.Diff
			}
		}

		var buffer bytes.Buffer
		if err := report.Render(&buffer, report.NewPage(baseline, comparison, structure)); err != nil {
			slog.ErrorContext(ctx, fmt.Sprintf("failed to render report: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buffer.Bytes())
	}
}

func Blob(blobs storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		data, err := blobs.Get(ctx, r.PathValue("key"))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
				http.NotFound(w, r)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to read object: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		contentType, ok := imageContentType(data)
		if !ok {
			slog.WarnContext(ctx, "refused to serve non-image object", "key", r.PathValue("key"))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", contentType)
		// Keys are content addressed, so an object never changes.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// imageContentType names data only when it is an image. TIFF has no
// sniffing signature, so the decoder registry identifies it instead.
func imageContentType(data []byte) (string, bool) {
	if contentType := http.DetectContentType(data); strings.HasPrefix(contentType, "image/") {
		return contentType, true
	}
	if _, format, err := diffimage.DecodeConfig(data, 0); err == nil {
		return "image/" + format, true
	}
	return "", false
}
