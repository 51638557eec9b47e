package server

import (
	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/perimeterhq/tenantd/internal/api/v1"
)

// Handler dependency aliases, re-exported so main wires concrete services
// while tests inject fakes.
type (
	TenantProvisioner = v1.TenantProvisioner
	AuditReader       = v1.AuditReader
)

func registerAPIRoutes(api huma.API, provisioner TenantProvisioner, auditReader AuditReader, authz v1.Authorizer) {
	v1.RegisterTenantRoutes(api, provisioner, authz)
	v1.RegisterAuditRoutes(api, auditReader, authz)
}
