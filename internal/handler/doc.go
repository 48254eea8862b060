// Package handler contains the HTTP handlers of the labeling API.
//
// Handlers parse path parameters and bodies, call the services and wrap
// results in the Response envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"kind": "NOT_FOUND", "message": "..."}}
//
// Handlers never write error responses themselves. They return the error and
// ErrorHandler, installed as the fiber error handler, maps the apperrors code
// to the HTTP status and the error kind.
//
// # Routes
//
//   - /api/v1/datasets/* - datasets and their items
//   - /api/v1/tasks/* - tasks, tag sets, next-item selection and submissions
//   - /health, /livez, /readyz, /metrics - probes and Prometheus metrics
package handler
