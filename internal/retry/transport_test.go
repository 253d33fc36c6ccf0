package retry_test

import (
	"context"
	"design-diff/internal/retry"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// sequenceServer answers with the given status codes in order and repeats
// the last one afterwards. It records every request body it receives.
type sequenceServer struct {
	codes   []int
	headers http.Header

	calls  atomic.Int64
	mu     sync.Mutex
	bodies []string
}

func (s *sequenceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(s.calls.Add(1)) - 1
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.bodies = append(s.bodies, string(body))
	s.mu.Unlock()

	for k, v := range s.headers {
		w.Header()[k] = v
	}
	w.WriteHeader(s.codes[min(n, len(s.codes)-1)])
	_, _ = w.Write([]byte("attempt"))
}

func fastBackOff(maxRetries uint) retry.Strategy {
	return retry.NewExponentialBackOff(retry.BackOffConfig{
		Base:       time.Millisecond,
		Max:        5 * time.Millisecond,
		MaxRetries: maxRetries,
	})
}

type onlyReader struct {
	io.Reader
}

func TestHTTPClientDo(t *testing.T) {
	type in struct {
		codes   []int
		headers http.Header
		method  string
		body    func() io.Reader
	}

	type want struct {
		statusCode int
		calls      int64
		bodies     []string
	}

	tests := []struct {
		name            string
		receiver        *retry.Transport
		in              in
		want            want
		wantErrorString string
	}{
		{
			line(),
			&retry.Transport{RetryStrategy: fastBackOff(3), RetryOn: mustRetryOn("5xx")},
			in{codes: []int{200}, method: http.MethodGet},
			want{200, 1, []string{""}},
			"",
		},
		{
			line(),
			&retry.Transport{RetryStrategy: fastBackOff(3), RetryOn: mustRetryOn("5xx")},
			in{codes: []int{503, 500, 200}, method: http.MethodGet},
			want{200, 3, []string{"", "", ""}},
			"",
		},
		{
			line(),
			&retry.Transport{RetryStrategy: fastBackOff(2), RetryOn: mustRetryOn("5xx")},
			in{codes: []int{503}, method: http.MethodGet},
			want{503, 3, []string{"", "", ""}},
			"",
		},
		{
			line(),
			&retry.Transport{RetryOn: mustRetryOn("5xx")},
			in{codes: []int{503}, method: http.MethodGet},
			want{503, 1, []string{""}},
			"",
		},
		{
			line(),
			&retry.Transport{RetryStrategy: fastBackOff(3), RetryOn: mustRetryOn("gateway-error")},
			in{codes: []int{502, 201}, method: http.MethodPost, body: func() io.Reader { return strings.NewReader(`{"text":"hi"}`) }},
			want{201, 2, []string{`{"text":"hi"}`, `{"text":"hi"}`}},
			"",
		},
		{
			line(),
			&retry.Transport{RetryStrategy: fastBackOff(3), RetryOn: mustRetryOn("rate-limited"), MaxRetryAfter: 10 * time.Millisecond},
			in{codes: []int{429, 200}, headers: http.Header{"Retry-After": []string{"3600"}}, method: http.MethodGet},
			want{200, 2, []string{"", ""}},
			"",
		},
		{
			line(),
			&retry.Transport{RetryStrategy: fastBackOff(3), RetryOn: mustRetryOn("5xx")},
			in{codes: []int{400}, method: http.MethodGet},
			want{400, 1, []string{""}},
			"",
		},
		{
			line(),
			&retry.Transport{RetryStrategy: fastBackOff(3), RetryOn: mustRetryOn("5xx")},
			in{codes: []int{500, 200}, method: http.MethodPost, body: func() io.Reader { return onlyReader{strings.NewReader("stream")} }},
			want{0, 1, []string{"stream"}},
			"request body cannot be rewound for retry",
		},
	}

	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		wantErrorString := tt.wantErrorString
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			handler := &sequenceServer{codes: in.codes, headers: in.headers}
			server := httptest.NewServer(handler)
			defer server.Close()

			var body io.Reader
			if in.body != nil {
				body = in.body()
			}
			request, err := http.NewRequest(in.method, server.URL, body)
			if err != nil {
				t.Fatal(err)
			}

			client := &http.Client{Transport: receiver}
			response, err := client.Do(request)
			if err != nil {
				if !strings.Contains(err.Error(), wantErrorString) || wantErrorString == "" {
					t.Errorf("Unexpected error: %v", err)
				}
			} else {
				defer response.Body.Close()
				if wantErrorString != "" {
					t.Errorf("Expected error containing %q", wantErrorString)
				}
				if diff := cmp.Diff(want.statusCode, response.StatusCode); diff != "" {
					t.Errorf("(-want +got):\n%s", diff)
				}
				got, _ := io.ReadAll(response.Body)
				if diff := cmp.Diff("attempt", string(got)); diff != "" {
					t.Errorf("(-want +got):\n%s", diff)
				}
			}

			if diff := cmp.Diff(want.calls, handler.calls.Load()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			handler.mu.Lock()
			defer handler.mu.Unlock()
			if diff := cmp.Diff(want.bodies, handler.bodies); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripStopsOnContextCancel(t *testing.T) {
	handler := &sequenceServer{codes: []int{503}}
	server := httptest.NewServer(handler)
	defer server.Close()

	transport := &retry.Transport{
		RetryStrategy: retry.NewExponentialBackOff(retry.BackOffConfig{
			Base:       time.Hour,
			Max:        time.Hour,
			MaxRetries: 5,
			Entropy:    func(n int64) int64 { return n },
		}),
		RetryOn: mustRetryOn("5xx"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err = (&http.Client{Transport: transport}).Do(request)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), context.DeadlineExceeded.Error()) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Retry wait ignored cancellation: %v", elapsed)
	}
	if diff := cmp.Diff(int64(1), handler.calls.Load()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
