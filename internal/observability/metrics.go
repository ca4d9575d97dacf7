// Package observability collects run metrics and pushes them to a Prometheus
// Pushgateway. The bot exits after each run, so nothing is served for
// scraping. Sentry error reporting lives in the errors package.
package observability

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/observability/metrics"
	"github.com/asterisksounds/asterisk-sound-bot/internal/publish"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Publish  *metrics.PublishMetrics
	API      *metrics.APIMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	publishMetrics, err := metrics.NewPublishMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish metrics: %w", err)
	}

	apiMetrics, err := metrics.NewAPIMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create API metrics: %w", err)
	}

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}

	return &Metrics{
		registry: registry,
		Publish:  publishMetrics,
		API:      apiMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun records a finished run. err is the error the run returned.
func (m *Metrics) RecordRun(res *publish.Result, err error) {
	for stage, d := range res.Timings {
		m.Publish.ObserveStage(stage, d.Seconds())
	}
	if res.Bytes > 0 {
		m.Publish.ObserveSoundSize(res.Bytes)
	}

	outcome, failedStage := "posted", ""
	switch {
	case err != nil:
		outcome, failedStage = "aborted", res.FailedStage.String()
	case res.DryRun:
		outcome = "dry-run"
	}

	finished := res.FinishedAt
	if finished.IsZero() {
		finished = res.StartedAt
	}
	m.Publish.RecordRun(outcome, failedStage, res.Locale.Code, publish.ExitCode(err), float64(finished.Unix()))
}

// Push replaces the metrics of job on the Pushgateway at gatewayURL with
// the current values, grouped by host.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}

	pusher := push.New(gatewayURL, job).
		Gatherer(m.registry).
		Grouping("instance", host)

	if err := pusher.PushContext(ctx); err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("operation", "push_metrics").
			Context("job", job).
			Build()
	}

	GetLogger().Debug("Metrics pushed", logger.String("job", job))
	return nil
}
