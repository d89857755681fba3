package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixDedup = "dedup:"
)

const (
	DefaultEventsTopic = "detection_events"
	DefaultDLQTopic    = "detection_events_dlq"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	TenantTokenHeader = "X-Tenant-Token"
)

const (
	ActionWhatsApp = "whatsapp"
)

const (
	TimeLayoutHHMM = "15:04"
)
