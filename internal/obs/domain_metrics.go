package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// InvoicesCreatedTotal counts created invoices by source (manual, itinerary).
	InvoicesCreatedTotal *prometheus.CounterVec
	// InvoiceStatusTransitions counts applied status changes.
	InvoiceStatusTransitions *prometheus.CounterVec
	// EmailDispatchTotal tracks email function outcomes.
	EmailDispatchTotal *prometheus.CounterVec
	// EmailDispatchLatency records email function latency in milliseconds.
	EmailDispatchLatency *prometheus.HistogramVec
	// DocumentRenderTotal counts rendered documents by kind and result.
	DocumentRenderTotal *prometheus.CounterVec
	// BlobDecodeFailures counts stored JSON blobs replaced by empty collections.
	BlobDecodeFailures *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		InvoicesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Count of created invoices by source.",
		}, []string{"source"})
		InvoiceStatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_status_transitions_total",
			Help:      "Count of invoice status transitions.",
		}, []string{"from", "to"})
		EmailDispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_dispatch_total",
			Help:      "Count of email function outcomes.",
		}, []string{"result"})
		EmailDispatchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_dispatch_duration_ms",
			Help:      "Latency for email function calls in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"result"})
		DocumentRenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_render_total",
			Help:      "Count of rendered documents by kind and result.",
		}, []string{"kind", "result"})
		BlobDecodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stored_blob_decode_failures_total",
			Help:      "Stored JSON blobs that failed to decode and were replaced by empty collections.",
		}, []string{"blob"})

		InvoicesCreatedTotal = registerOrReuse(reg, InvoicesCreatedTotal)
		InvoiceStatusTransitions = registerOrReuse(reg, InvoiceStatusTransitions)
		EmailDispatchTotal = registerOrReuse(reg, EmailDispatchTotal)
		EmailDispatchLatency = registerOrReuse(reg, EmailDispatchLatency)
		DocumentRenderTotal = registerOrReuse(reg, DocumentRenderTotal)
		BlobDecodeFailures = registerOrReuse(reg, BlobDecodeFailures)
	})
}

// IncBlobDecodeFailure records a stored blob decode fallback.
func IncBlobDecodeFailure(blob string) {
	if BlobDecodeFailures != nil {
		BlobDecodeFailures.WithLabelValues(blob).Inc()
	}
}

// IncDocumentRender records a document render outcome.
func IncDocumentRender(kind string, err error) {
	if DocumentRenderTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	DocumentRenderTotal.WithLabelValues(kind, result).Inc()
}
