package retry

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/xerrors"
)

// On selects retriable outcomes using Envoy's retry_on vocabulary plus
// "rate-limited" for 429 responses.
type On struct {
	serverError    bool
	gatewayError   bool
	connectFailure bool
	retriable4xx   bool
	rateLimited    bool
	statusCodes    []int
}

func NewDefaultRetryOn() *On {
	return &On{
		gatewayError:   true,
		connectFailure: true,
		retriable4xx:   true,
		rateLimited:    true,
	}
}

func NewRetryOnFromString(s string) (*On, error) {
	o := &On{}
	for _, token := range strings.Split(s, ",") {
		switch token = strings.TrimSpace(token); token {
		case "5xx":
			o.serverError = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "retriable-4xx":
			o.retriable4xx = true
		case "rate-limited":
			o.rateLimited = true
		default:
			statusCode, err := strconv.Atoi(token)
			if err != nil {
				return nil, xerrors.Errorf("invalid retryOn: %s", token)
			}
			o.statusCodes = append(o.statusCodes, statusCode)
		}
	}
	return o, nil
}

// https://www.envoyproxy.io/docs/envoy/latest/configuration/http/http_filters/router_filter#x-envoy-retry-on
func (o *On) CheckResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o.serverError && code >= 500 && code < 600:
		return true
	case o.gatewayError && code >= 502 && code < 505:
		return true
	case o.retriable4xx && code == http.StatusConflict:
		return true
	case o.rateLimited && code == http.StatusTooManyRequests:
		return true
	}

	for _, i := range o.statusCodes {
		if i == code {
			return true
		}
	}

	return false
}

func (o *On) CheckError(err error) bool {
	if !o.connectFailure && !o.serverError {
		return false
	}
	var netErr net.Error
	return (errors.As(err, &netErr) && netErr.Timeout()) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
