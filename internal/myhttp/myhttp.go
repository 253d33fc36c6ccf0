package myhttp

import (
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

func newServerMux(httpRequestsDurationMicroSeconds metric.Int64Histogram) *myRouter {
	return &myRouter{
		ServeMux:                         http.NewServeMux(),
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
}

var NewServerMux = newServerMux
