package main

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/voxgraph/internal/audiocore"
	"github.com/tphakala/voxgraph/internal/monitor"
)

// registerMetricsRoute mounts /metrics on the debug server, gated by
// conf.PerformanceConfig.PrometheusEnabled (spec.md §4.H performance
// monitor, exported the way conf already allows).
func registerMetricsRoute(e *echo.Echo, p *audiocore.Pipeline) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(monitor.NewPrometheusCollector(p.Monitor()))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}
