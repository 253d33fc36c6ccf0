package notify_test

import (
	"context"
	"design-diff/internal/notify"
	"design-diff/internal/store"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type memoryThreads struct {
	mu      sync.Mutex
	threads map[string]*store.SlackThread
}

func (m *memoryThreads) GetSlackThread(_ context.Context, issueKey string) (*store.SlackThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	thread, ok := m.threads[issueKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	return thread, nil
}

func (m *memoryThreads) UpsertSlackThread(_ context.Context, thread *store.SlackThread) (*store.SlackThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.threads == nil {
		m.threads = map[string]*store.SlackThread{}
	}
	if existing, ok := m.threads[thread.IssueKey]; ok {
		return existing, nil
	}
	m.threads[thread.IssueKey] = thread
	return thread, nil
}

type slackPost struct {
	Authorization string
	Channel       string `json:"channel"`
	Text          string `json:"text"`
	ThreadTS      string `json:"thread_ts"`
}

type fakeSlack struct {
	mu    sync.Mutex
	posts []slackPost
	reply string
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat.postMessage" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var post slackPost
	_ = json.NewDecoder(r.Body).Decode(&post)
	post.Authorization = r.Header.Get("Authorization")

	f.mu.Lock()
	f.posts = append(f.posts, post)
	n := len(f.posts)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.reply != "" {
		_, _ = w.Write([]byte(f.reply))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"ts":"1700000000.00000` + string(rune('0'+n)) + `"}`))
}

func TestSlackPublishThreads(t *testing.T) {
	fake := &fakeSlack{}
	server := httptest.NewServer(fake)
	defer server.Close()

	threads := &memoryThreads{}
	slack := notify.NewSlack(notify.SlackConfig{APIURL: server.URL, Token: "xoxb-1"}, server.Client(), threads)

	comparison := notify.Comparison{IssueKey: "DES-3", NodeName: "Modal", ChangedPercent: 4, ReportURL: "http://r"}

	first, err := slack.Publish(context.Background(), "#design", comparison)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := slack.Publish(context.Background(), "#design", comparison)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff("1700000000.000001", first); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("1700000000.000002", second); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	text := "*Visual Diff Update*\nIssue: DES-3\nNode: Modal\nChange: 4.00%\n<http://r|Open Report>"
	want := []slackPost{
		{Authorization: "Bearer xoxb-1", Channel: "#design", Text: text},
		{Authorization: "Bearer xoxb-1", Channel: "#design", Text: text, ThreadTS: "1700000000.000001"},
	}
	if diff := cmp.Diff(want, fake.posts); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	thread, err := threads.GetSlackThread(context.Background(), "DES-3")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(&store.SlackThread{IssueKey: "DES-3", Channel: "#design", ThreadTS: "1700000000.000001"}, thread, cmpopts.IgnoreFields(store.SlackThread{}, "LastUpdated")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSlackNotOK(t *testing.T) {
	server := httptest.NewServer(&fakeSlack{reply: `{"ok":false,"error":"channel_not_found"}`})
	defer server.Close()

	threads := &memoryThreads{}
	slack := notify.NewSlack(notify.SlackConfig{APIURL: server.URL, Token: "xoxb-1"}, server.Client(), threads)

	_, err := slack.Publish(context.Background(), "#missing", notify.Comparison{IssueKey: "DES-4"})
	var apiErr *notify.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if diff := cmp.Diff("channel_not_found", apiErr.Code); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if _, err := threads.GetSlackThread(context.Background(), "DES-4"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no thread to be saved, got %v", err)
	}
}

func TestSlackConfigEnabled(t *testing.T) {
	if (notify.SlackConfig{}).Enabled() {
		t.Error("Expected empty config to be disabled")
	}
	if !(notify.SlackConfig{Token: "xoxb"}).Enabled() {
		t.Error("Expected configured Slack to be enabled")
	}
}
