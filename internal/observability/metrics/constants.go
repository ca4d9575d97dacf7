package metrics

// Operation label values.
const (
	// OpMediaUpload is the media upload request.
	OpMediaUpload = "media_upload"
	// OpMediaGet is a media processing poll.
	OpMediaGet = "media_get"
	// OpMediaUpdate sets the media description.
	OpMediaUpdate = "media_update"
	// OpStatusCreate posts the status.
	OpStatusCreate = "status_create"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket configuration.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1KB is the starting bucket for 1KB histograms (1KB to ~1GB range).
	BucketStart1KB = 1024.0
	// BucketFactor2 is the common exponential growth factor.
	BucketFactor2 = 2
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount20 defines 20 exponential buckets.
	BucketCount20 = 20
)
