// Package metrics provides Prometheus metrics for the organizer service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal tracks submission mutations by form type and action
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "submission",
			Name:      "submissions_total",
			Help:      "Total number of submission mutations by form type and action",
		},
		[]string{"form_type", "action"},
	)

	// MutationDuration tracks how long a submission mutation takes, lock wait included
	MutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "organizer",
			Subsystem: "submission",
			Name:      "mutation_duration_seconds",
			Help:      "Duration of submission mutations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"action"},
	)

	// AnswersMaterialized tracks typed answers written by field type
	AnswersMaterialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "materializer",
			Name:      "answers_materialized_total",
			Help:      "Total number of typed answers written by field type",
		},
		[]string{"field_type"},
	)

	// StructuredRowsReplaced tracks sub-entity rows written by kind
	StructuredRowsReplaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "materializer",
			Name:      "structured_rows_replaced_total",
			Help:      "Total number of dependent, owner, vehicle and contribution rows written",
		},
		[]string{"kind"},
	)

	// AuditEntries tracks audit log entries appended by action
	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total number of audit entries appended by action",
		},
		[]string{"action"},
	)

	// LockWait tracks time spent acquiring the per-submission lock
	LockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "organizer",
			Subsystem: "redis",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a submission lock in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	// CRMSyncTotal tracks CRM sync attempts by outcome
	CRMSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "crm",
			Name:      "sync_total",
			Help:      "Total number of CRM sync attempts by status",
		},
		[]string{"status"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "organizer",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "organizer",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// KafkaMessagesConsumed tracks Kafka messages handled by the consumer
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "organizer",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka",
		},
		[]string{"topic", "status"},
	)

	// RedisOperationDuration tracks Redis operation duration
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "organizer",
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"operation"},
	)
)

// RecordMutation records a submission mutation metric
func RecordMutation(formType, action string, durationSeconds float64) {
	SubmissionsTotal.WithLabelValues(formType, action).Inc()
	MutationDuration.WithLabelValues(action).Observe(durationSeconds)
}

// RecordAnswer records one materialized answer
func RecordAnswer(fieldType string) {
	AnswersMaterialized.WithLabelValues(fieldType).Inc()
}

// RecordStructuredRows records replaced sub-entity rows
func RecordStructuredRows(kind string, count int) {
	StructuredRowsReplaced.WithLabelValues(kind).Add(float64(count))
}

// RecordAuditEntry records an appended audit entry
func RecordAuditEntry(action string) {
	AuditEntries.WithLabelValues(action).Inc()
}

// RecordLockWait records time spent acquiring a submission lock
func RecordLockWait(durationSeconds float64) {
	LockWait.Observe(durationSeconds)
}

// RecordCRMSync records a CRM sync outcome
func RecordCRMSync(status string) {
	CRMSyncTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

// RecordKafkaConsume records a consumed Kafka message
func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}

// RecordRedisOperation records a Redis operation duration
func RecordRedisOperation(operation string, durationSeconds float64) {
	RedisOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}
