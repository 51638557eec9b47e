package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantd_audit_events_total",
			Help: "Audit events written, by event type",
		},
		[]string{"event_type"},
	)

	RetentionDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantd_retention_deleted_total",
			Help: "Audit rows removed by retention sweeps",
		},
	)

	RetentionSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantd_retention_sweeps_total",
			Help: "Retention sweep executions, by outcome",
		},
		[]string{"outcome"}, // success|failure
	)

	TenantsProvisionedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantd_tenants_provisioned_total",
			Help: "Tenants successfully provisioned",
		},
	)

	ProvisioningFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantd_provisioning_failures_total",
			Help: "Tenant provisioning failures, by stage",
		},
		[]string{"stage"}, // platform|store|audit
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(
		AuditEventsTotal,
		RetentionDeletedTotal,
		RetentionSweepsTotal,
		TenantsProvisionedTotal,
		ProvisioningFailuresTotal,
	)
}
