package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/xerrors"
)

type JiraAuthMode string

const (
	JiraBasic  JiraAuthMode = "basic"
	JiraBearer JiraAuthMode = "bearer"
)

type JiraConfig struct {
	BaseURL  string
	AuthMode JiraAuthMode
	Username string
	Token    string
}

func (c JiraConfig) Enabled() bool {
	return c.BaseURL != "" && c.Token != ""
}

type Jira struct {
	config JiraConfig
	client *http.Client
}

func NewJira(config JiraConfig, client *http.Client) *Jira {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.AuthMode == "" {
		config.AuthMode = JiraBasic
	}
	return &Jira{
		config: config,
		client: client,
	}
}

// Publish comments on the issue and attaches the diff image when present.
// It returns the created comment id.
func (j *Jira) Publish(ctx context.Context, c Comparison) (string, error) {
	commentID, err := j.AddComment(ctx, c.IssueKey, JiraComment(c))
	if err != nil {
		return "", err
	}
	if len(c.DiffPNG) > 0 {
		if err := j.AddAttachment(ctx, c.IssueKey, "diff.png", c.DiffPNG); err != nil {
			return commentID, err
		}
	}
	return commentID, nil
}

func (j *Jira) AddComment(ctx context.Context, issueKey string, body string) (string, error) {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return "", xerrors.Errorf("failed to marshal comment: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, j.issueURL(issueKey, "comment"), bytes.NewReader(payload))
	if err != nil {
		return "", xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	var comment struct {
		ID string `json:"id"`
	}
	if err := j.do(request, &comment); err != nil {
		return "", xerrors.Errorf("failed to add comment to %s: %w", issueKey, err)
	}
	return comment.ID, nil
}

func (j *Jira) AddAttachment(ctx context.Context, issueKey string, filename string, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return xerrors.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return xerrors.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return xerrors.Errorf("failed to close multipart writer: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, j.issueURL(issueKey, "attachments"), bytes.NewReader(body.Bytes()))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("X-Atlassian-Token", "no-check")

	if err := j.do(request, nil); err != nil {
		return xerrors.Errorf("failed to attach %s to %s: %w", filename, issueKey, err)
	}
	return nil
}

func (j *Jira) issueURL(issueKey string, resource string) string {
	return j.config.BaseURL + "/rest/api/2/issue/" + url.PathEscape(issueKey) + "/" + resource
}

func (j *Jira) do(request *http.Request, out any) error {
	request.Header.Set("Accept", "application/json")
	switch j.config.AuthMode {
	case JiraBearer:
		request.Header.Set("Authorization", "Bearer "+j.config.Token)
	default:
		request.SetBasicAuth(j.config.Username, j.config.Token)
	}

	response, err := j.client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, response.Body)
		return &APIError{Service: "jira", StatusCode: response.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return xerrors.Errorf("failed to decode response: %w", err)
	}
	return nil
}
