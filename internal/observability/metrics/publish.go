package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PublishMetrics describes bot runs: how they ended, how long each stage
// took and what was posted.
type PublishMetrics struct {
	RunsTotal        *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	SoundSize        prometheus.Histogram
	PostsByLocale    *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge
	LastSuccess      prometheus.Gauge
	LastRunExitCode  prometheus.Gauge
}

// NewPublishMetrics creates the collectors and registers them with registry.
func NewPublishMetrics(registry *prometheus.Registry) (*PublishMetrics, error) {
	m := &PublishMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register publish metrics: %w", err)
	}
	return m, nil
}

func (m *PublishMetrics) initMetrics() {
	m.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soundbot_runs_total",
		Help: "Total number of runs by outcome and the stage a failed run stopped in",
	}, []string{"outcome", "failed_stage"})

	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "soundbot_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	}, []string{"stage"})

	m.SoundSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "soundbot_sound_size_bytes",
		Help:    "Size of fetched sound files",
		Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor2, BucketCount20),
	})

	m.PostsByLocale = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soundbot_posts_total",
		Help: "Total number of posted sounds by locale",
	}, []string{"locale"})

	m.LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "soundbot_last_run_timestamp_seconds",
		Help: "Unix time the last run finished",
	})

	m.LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "soundbot_last_success_timestamp_seconds",
		Help: "Unix time of the last run that posted a sound",
	})

	m.LastRunExitCode = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "soundbot_last_run_exit_code",
		Help: "Exit code of the last run",
	})
}

// ObserveStage records the duration of one stage.
func (m *PublishMetrics) ObserveStage(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// ObserveSoundSize records the size of the fetched sound.
func (m *PublishMetrics) ObserveSoundSize(bytes int) {
	m.SoundSize.Observe(float64(bytes))
}

// RecordRun records the outcome of a run. failedStage is empty unless the
// run aborted.
func (m *PublishMetrics) RecordRun(outcome, failedStage, locale string, exitCode int, finishedUnix float64) {
	m.RunsTotal.WithLabelValues(outcome, failedStage).Inc()
	m.LastRunTimestamp.Set(finishedUnix)
	m.LastRunExitCode.Set(float64(exitCode))
	if outcome == "posted" {
		m.PostsByLocale.WithLabelValues(locale).Inc()
		m.LastSuccess.Set(finishedUnix)
	}
}

// Describe implements the prometheus.Collector interface.
func (m *PublishMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RunsTotal.Describe(ch)
	m.StageDuration.Describe(ch)
	ch <- m.SoundSize.Desc()
	m.PostsByLocale.Describe(ch)
	ch <- m.LastRunTimestamp.Desc()
	ch <- m.LastSuccess.Desc()
	ch <- m.LastRunExitCode.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *PublishMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RunsTotal.Collect(ch)
	m.StageDuration.Collect(ch)
	ch <- m.SoundSize
	m.PostsByLocale.Collect(ch)
	ch <- m.LastRunTimestamp
	ch <- m.LastSuccess
	ch <- m.LastRunExitCode
}
