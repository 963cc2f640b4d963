// Package api implements the REST surface for Greenhouse Core.
//
// Routes live under /api/v1. Health and login are open; everything else
// requires a bearer token issued by POST /auth/login, and mutations
// additionally require the admin role. Responses are JSON with a
// uniform error envelope (status, code, message).
//
// The server reads and writes through the same repositories the
// automation cycle uses, and manual device overrides funnel through the
// shared Commander so REST and MQTT commands behave identically.
package api
