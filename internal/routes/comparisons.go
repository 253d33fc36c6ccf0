package routes

import (
	"context"
	diffimage "design-diff/internal/diff/image"
	"design-diff/internal/metadata"
	"design-diff/internal/notify"
	"design-diff/internal/storage"
	"design-diff/internal/store"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

type ComparisonConfig struct {
	Records        store.Store
	Blobs          storage.Storage
	Differ         diffimage.Differ
	Jira           JiraPublisher
	Slack          SlackPublisher
	ChangedPercent metric.Float64Histogram
	PublicURL      string
	MaxUploadBytes int64
}

type CreateComparisonResponse struct {
	ComparisonID   string  `json:"comparisonId"`
	ReportURL      string  `json:"reportUrl"`
	ChangedPercent float64 `json:"changedPercent"`
	ChangedPixels  int64   `json:"changedPixels"`
	JiraCommentID  string  `json:"jiraCommentId,omitempty"`
	SlackTS        string  `json:"slackTs,omitempty"`
	Errors         string  `json:"errors,omitempty"`
}

func CreateComparison(c ComparisonConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		upload, err := readUpload(w, r, c.MaxUploadBytes)
		if err != nil {
			writeError(ctx, w, uploadErrorStatus(err), err.Error(), nil)
			return
		}

		meta, err := metadata.ParseComparison(upload.metadata)
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

		baseline, err := c.Records.GetBaseline(ctx, meta.BaselineID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(ctx, w, http.StatusNotFound, "baseline not found", nil)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to get baseline: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		baselineImage, err := c.Blobs.Get(ctx, baseline.ImageKey)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(ctx, w, http.StatusNotFound, "baseline image not found", nil)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to read baseline image: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		result, err := c.Differ.Compare(baselineImage, upload.file, true)
		if err != nil {
			if status, ok := compareErrorStatus(err); ok {
				writeError(ctx, w, status, err.Error(), nil)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to compare images: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		var afterKey, diffKey string
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			key, err := c.Blobs.Put(egCtx, storage.ContentKey("after", upload.file), upload.file)
			if err != nil {
				return err
			}
			afterKey = key
			return nil
		})
		if len(result.DiffPNG) > 0 {
			eg.Go(func() error {
				key, err := c.Blobs.Put(egCtx, storage.ContentKey("diff", result.DiffPNG), result.DiffPNG)
				if err != nil {
					return err
				}
				diffKey = key
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			slog.ErrorContext(ctx, fmt.Sprintf("failed to store comparison images: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		comparison := &store.Comparison{
			ID:             uuid.NewString(),
			BaselineID:     baseline.ID,
			IssueKey:       firstNonEmpty(meta.IssueKey, baseline.IssueKey),
			SlackChannel:   meta.SlackChannel,
			NodeID:         firstNonEmpty(meta.NodeID, baseline.NodeID),
			NodeName:       firstNonEmpty(meta.NodeName, baseline.NodeName),
			CreatedAt:      time.Now(),
			AfterImageKey:  afterKey,
			DiffImageKey:   diffKey,
			ChangedPercent: result.ChangedPercent,
			ChangedPixels:  result.ChangedPixelCount,
			StructureJSON:  meta.StructureJSON,
		}
		if err := c.Records.CreateComparison(ctx, comparison); err != nil {
			slog.ErrorContext(ctx, fmt.Sprintf("failed to create comparison: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		if c.ChangedPercent != nil {
			c.ChangedPercent.Record(ctx, comparison.ChangedPercent)
		}

		reportURL := baseURL(r, c.PublicURL) + "/reports/" + comparison.ID

		// Notifications outlive a disconnected client; their failures are
		// recorded on the comparison instead of failing the request.
		notifyCtx := context.WithoutCancel(ctx)
		publishNotifications(notifyCtx, c, comparison, notify.Comparison{
			IssueKey:       comparison.IssueKey,
			NodeName:       comparison.NodeName,
			ChangedPercent: comparison.ChangedPercent,
			ReportURL:      reportURL,
			DiffPNG:        result.DiffPNG,
		})
		if comparison.JiraCommentID != "" || comparison.SlackTS != "" || comparison.ErrorLog != "" {
			if err := c.Records.UpdateNotifications(notifyCtx, comparison.ID, comparison.JiraCommentID, comparison.SlackTS, comparison.ErrorLog); err != nil {
				slog.ErrorContext(ctx, fmt.Sprintf("failed to record notifications: %s", err))
			}
		}

		slog.InfoContext(ctx, "comparison published",
			"comparisonId", comparison.ID,
			"baselineId", baseline.ID,
			"changedPercent", comparison.ChangedPercent,
			"changedPixels", comparison.ChangedPixels,
		)
		writeJSON(ctx, w, http.StatusOK, CreateComparisonResponse{
			ComparisonID:   comparison.ID,
			ReportURL:      reportURL,
			ChangedPercent: comparison.ChangedPercent,
			ChangedPixels:  comparison.ChangedPixels,
			JiraCommentID:  comparison.JiraCommentID,
			SlackTS:        comparison.SlackTS,
			Errors:         comparison.ErrorLog,
		})
	}
}

// publishNotifications fills in JiraCommentID, SlackTS and ErrorLog of
// comparison.
func publishNotifications(ctx context.Context, c ComparisonConfig, comparison *store.Comparison, message notify.Comparison) {
	if comparison.IssueKey == "" {
		return
	}

	var (
		mu     sync.Mutex
		errLog []string
	)
	logFailure := func(service string, err error) {
		slog.ErrorContext(ctx, fmt.Sprintf("failed to notify %s: %s", service, err), "comparisonId", comparison.ID)
		mu.Lock()
		defer mu.Unlock()
		errLog = append(errLog, fmt.Sprintf("%s: %s", service, err))
	}

	var eg errgroup.Group
	if c.Jira != nil {
		eg.Go(func() error {
			id, err := c.Jira.Publish(ctx, message)
			if err != nil {
				logFailure("jira", err)
			}
			mu.Lock()
			defer mu.Unlock()
			comparison.JiraCommentID = id
			return nil
		})
	}
	if c.Slack != nil && comparison.SlackChannel != "" {
		eg.Go(func() error {
			ts, err := c.Slack.Publish(ctx, comparison.SlackChannel, message)
			if err != nil {
				logFailure("slack", err)
			}
			mu.Lock()
			defer mu.Unlock()
			comparison.SlackTS = ts
			return nil
		})
	}
	_ = eg.Wait()

	slices.Sort(errLog)
	comparison.ErrorLog = strings.Join(errLog, "\n")
}

func compareErrorStatus(err error) (int, bool) {
	var (
		decodeErr    *diffimage.DecodeError
		resizeErr    *diffimage.ResizeError
		dimensionErr *diffimage.DimensionMismatchError
	)
	switch {
	case errors.As(err, &decodeErr), errors.As(err, &resizeErr), errors.As(err, &dimensionErr):
		return http.StatusUnprocessableEntity, true
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func GetComparison(records store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		comparison, err := records.GetComparison(ctx, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(ctx, w, http.StatusNotFound, "comparison not found", nil)
				return
			}
			slog.ErrorContext(ctx, fmt.Sprintf("failed to get comparison: %s", err))
			writeError(ctx, w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
			return
		}

		writeJSON(ctx, w, http.StatusOK, comparison)
	}
}
