// Package api hosts the operator HTTP server that runs alongside a campaign.
// Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/campaign for the live progress snapshot.
package api
