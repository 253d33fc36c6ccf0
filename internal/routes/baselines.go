package routes

import (
	diffimage "design-diff/internal/diff/image"
	"design-diff/internal/metadata"
	"design-diff/internal/storage"
	"design-diff/internal/store"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type CreateBaselineResponse struct {
	BaselineID string `json:"baselineId"`
	Message    string `json:"message"`
}

func CreateBaseline(records store.Store, blobs storage.Storage, maxUploadBytes int64, maxPixels int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		upload, err := readUpload(w, r, maxUploadBytes)
		if err != nil {
			writeError(ctx, w, uploadErrorStatus(err), err.Error(), nil)
			return
		}

		meta, err := metadata.ParseBaseline(upload.metadata)
		if err != nil {
			var validationErr *metadata.ValidationError
			if errors.As(err, &validationErr) {
				writeError(ctx, w, http.StatusBadRequest, "invalid metadata", validationErr.Errors)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to parse metadata: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		// Only images the comparator can read are stored, and Blob serves them back.
		if _, _, err := diffimage.DecodeConfig(upload.file, maxPixels); err != nil {
			writeError(ctx, w, http.StatusUnprocessableEntity, "baseline is not a supported image", []string{err.Error()})
			return
		}

		imageKey, err := blobs.Put(ctx, storage.ContentKey("baseline", upload.file), upload.file)
		if err != nil {
			slog.ErrorContext(ctx, fmt.Sprintf("failed to store baseline image: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		baseline := &store.Baseline{
			ID:            uuid.NewString(),
			IssueKey:      meta.IssueKey,
			NodeID:        meta.NodeID,
			NodeName:      meta.NodeName,
			FileKey:       meta.FileKey,
			PageName:      meta.PageName,
			User:          meta.User,
			CreatedAt:     time.Now(),
			ImageKey:      imageKey,
			StructureJSON: meta.StructureJSON,
		}
		if err := records.CreateBaseline(ctx, baseline); err != nil {
			slog.ErrorContext(ctx, fmt.Sprintf("failed to create baseline: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		slog.InfoContext(ctx, "baseline captured", "baselineId", baseline.ID, "issueKey", baseline.IssueKey, "nodeId", baseline.NodeID)
		writeJSON(ctx, w, http.StatusOK, CreateBaselineResponse{
			BaselineID: baseline.ID,
			Message:    "Baseline captured",
		})
	}
}

type BaselineResponse struct {
	*store.Baseline
	Comparisons []*store.Comparison `json:"comparisons"`
}

func GetBaseline(records store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := r.PathValue("id")

		baseline, err := records.GetBaseline(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(ctx, w, http.StatusNotFound, "baseline not found", nil)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to get baseline: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		comparisons, err := records.ListComparisons(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, fmt.Sprintf("failed to list comparisons: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}
		if comparisons == nil {
			comparisons = []*store.Comparison{}
		}

		writeJSON(ctx, w, http.StatusOK, BaselineResponse{
			Baseline:    baseline,
			Comparisons: comparisons,
		})
	}
}
