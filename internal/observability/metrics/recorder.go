// Package metrics provides the Prometheus collectors of the bot.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it instead of on concrete collectors.
type Recorder interface {
	// RecordOperation records an operation (e.g. "media_upload") with its
	// status ("success" or "error").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type
	// (e.g. "http_422", "network").
	RecordError(operation, errorType string)
}
