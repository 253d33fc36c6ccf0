package retry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"
)

var errBodyNotRewindable = errors.New("request body cannot be rewound for retry")

type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
	// MaxRetryAfter caps delays requested through a Retry-After header.
	// Zero means the header is ignored.
	MaxRetryAfter time.Duration
}

type contextKey string

const retryCountContextKey contextKey = "retryCountKey"

func getRetryCount(ctx context.Context) uint {
	v := ctx.Value(retryCountContextKey)

	i, ok := v.(uint)
	if !ok {
		return 0
	}

	return i
}

func setRetryCount(ctx context.Context, retryCount uint) context.Context {
	return context.WithValue(ctx, retryCountContextKey, retryCount)
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	retryCount := getRetryCount(request.Context())
	sleep, exceeded := t.retryStrategy().Sleep(retryCount)

	response, err := t.base().RoundTrip(request)
	if err != nil {
		if !exceeded && t.RetryOn != nil && t.RetryOn.CheckError(err) {
			return t.retry(request, retryCount, sleep)
		}
		return nil, err
	}
	if !exceeded && t.RetryOn != nil && t.RetryOn.CheckResponse(response) {
		if retryAfter, ok := t.retryAfter(response); ok {
			sleep = retryAfter
		}
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
		return t.retry(request, retryCount, sleep)
	}
	return response, nil
}

func (t *Transport) retry(request *http.Request, retryCount uint, sleep time.Duration) (*http.Response, error) {
	timer := time.NewTimer(sleep)
	select {
	case <-request.Context().Done():
		timer.Stop()
		return nil, request.Context().Err()
	case <-timer.C:
	}

	next := request.Clone(setRetryCount(request.Context(), retryCount+1))
	if request.Body != nil && request.Body != http.NoBody {
		if request.GetBody == nil {
			// The body was consumed and cannot be replayed.
			return nil, errBodyNotRewindable
		}
		body, err := request.GetBody()
		if err != nil {
			return nil, err
		}
		next.Body = body
	}
	return t.RoundTrip(next)
}

func (t *Transport) retryAfter(response *http.Response) (time.Duration, bool) {
	if t.MaxRetryAfter <= 0 {
		return 0, false
	}
	seconds, err := strconv.Atoi(response.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return clamp(time.Duration(seconds)*time.Second, 0, t.MaxRetryAfter), true
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
