package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"larder/internal/handlers"
	applog "larder/internal/log"
)

func newRouter(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		applog.Debug(context.Background(), "route registered", "path", "/metrics")
	}
	mux.HandleFunc("/app/api/editor/", handlers.EditorResource)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/editor/")
	mux.HandleFunc("/app/api/units", handlers.Units)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/units")
	mux.HandleFunc("/app/editor/sheet", handlers.CostSheet)
	applog.Debug(context.Background(), "route registered", "path", "/app/editor/sheet")
	return mux
}
