package notify

import (
	"design-diff/internal/retry"
	"fmt"
	"net/http"
	"time"
)

// Comparison carries what a notification needs to describe one published
// comparison.
type Comparison struct {
	IssueKey       string
	NodeName       string
	ChangedPercent float64
	ReportURL      string
	DiffPNG        []byte
}

func JiraComment(c Comparison) string {
	return fmt.Sprintf("Visual Diff Published for %s.\nChange: %.2f%%\n[View Report|%s]", c.NodeName, c.ChangedPercent, c.ReportURL)
}

func SlackMessage(c Comparison) string {
	return fmt.Sprintf("*Visual Diff Update*\nIssue: %s\nNode: %s\nChange: %.2f%%\n<%s|Open Report>", c.IssueKey, c.NodeName, c.ChangedPercent, c.ReportURL)
}

// APIError is returned when a remote service answers but rejects the call.
type APIError struct {
	Service    string
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s API error (status %d)", e.Service, e.StatusCode)
}

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &retry.Transport{
			Base: http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(retry.BackOffConfig{
				Base:       100 * time.Millisecond,
				Max:        5 * time.Second,
				MaxRetries: 3,
			}),
			RetryOn:       retry.NewDefaultRetryOn(),
			MaxRetryAfter: 10 * time.Second,
		},
	}
}
