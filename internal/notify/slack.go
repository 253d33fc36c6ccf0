package notify

import (
	"bytes"
	"context"
	"design-diff/internal/store"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

const defaultSlackAPIURL = "https://slack.com/api"

type SlackConfig struct {
	// APIURL defaults to https://slack.com/api.
	APIURL string
	Token  string
}

func (c SlackConfig) Enabled() bool {
	return c.Token != ""
}

// ThreadStore persists the root message of each issue's conversation.
type ThreadStore interface {
	GetSlackThread(ctx context.Context, issueKey string) (*store.SlackThread, error)
	UpsertSlackThread(ctx context.Context, thread *store.SlackThread) (*store.SlackThread, error)
}

type Slack struct {
	config  SlackConfig
	client  *http.Client
	threads ThreadStore
}

func NewSlack(config SlackConfig, client *http.Client, threads ThreadStore) *Slack {
	if config.APIURL == "" {
		config.APIURL = defaultSlackAPIURL
	}
	config.APIURL = strings.TrimRight(config.APIURL, "/")
	return &Slack{
		config:  config,
		client:  client,
		threads: threads,
	}
}

// Publish posts the update into the issue's thread, starting one when the
// issue has none yet. It returns the ts of the posted message.
func (s *Slack) Publish(ctx context.Context, channel string, c Comparison) (string, error) {
	var threadTS string
	thread, err := s.threads.GetSlackThread(ctx, c.IssueKey)
	switch {
	case err == nil:
		threadTS = thread.ThreadTS
	case errors.Is(err, store.ErrNotFound):
	default:
		return "", xerrors.Errorf("failed to look up thread for %s: %w", c.IssueKey, err)
	}

	ts, err := s.PostMessage(ctx, channel, SlackMessage(c), threadTS)
	if err != nil {
		return "", err
	}

	if threadTS == "" {
		if _, err := s.threads.UpsertSlackThread(ctx, &store.SlackThread{
			IssueKey:    c.IssueKey,
			Channel:     channel,
			ThreadTS:    ts,
			LastUpdated: time.Now(),
		}); err != nil {
			return ts, xerrors.Errorf("failed to save thread for %s: %w", c.IssueKey, err)
		}
	}
	return ts, nil
}

type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	TS    string `json:"ts"`
}

func (s *Slack) PostMessage(ctx context.Context, channel string, text string, threadTS string) (string, error) {
	payload, err := json.Marshal(postMessageRequest{
		Channel:  channel,
		Text:     text,
		ThreadTS: threadTS,
	})
	if err != nil {
		return "", xerrors.Errorf("failed to marshal message: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return "", xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json; charset=utf-8")
	request.Header.Set("Authorization", "Bearer "+s.config.Token)

	response, err := s.client.Do(request)
	if err != nil {
		return "", xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		return "", &APIError{Service: "slack", StatusCode: response.StatusCode}
	}

	var result postMessageResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", xerrors.Errorf("failed to decode response: %w", err)
	}
	// Slack reports most failures with 200 and ok:false.
	if !result.OK {
		return "", &APIError{Service: "slack", StatusCode: response.StatusCode, Code: result.Error}
	}
	return result.TS, nil
}
