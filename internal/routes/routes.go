package routes

import (
	"context"
	"design-diff/internal/notify"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// JiraPublisher comments on an issue. A nil JiraPublisher disables Jira.
type JiraPublisher interface {
	Publish(ctx context.Context, c notify.Comparison) (string, error)
}

// SlackPublisher posts to a channel. A nil SlackPublisher disables Slack.
type SlackPublisher interface {
	Publish(ctx context.Context, channel string, c notify.Comparison) (string, error)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string, details any) {
	writeJSON(ctx, w, status, errorResponse{Error: message, Details: details})
}

var errMissingFile = errors.New("file is required")

type upload struct {
	file     []byte
	metadata []byte
}

// readUpload reads the multipart "file" and "metadataJson" fields.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errMissingFile
		}
		return nil, err
	}
	defer func(file multipart.File) {
		_ = file.Close()
	}(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errMissingFile
	}

	return &upload{
		file:     data,
		metadata: []byte(r.FormValue("metadataJson")),
	}, nil
}

func uploadErrorStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// baseURL is publicURL when set, otherwise the scheme and host the request
// was addressed to.
func baseURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, map[string]any{
			"status": "healthy",
			"time":   time.Now().UTC(),
		})
	}
}
