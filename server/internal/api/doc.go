// Package api implements the HTTP surface of the taskboard server.
//
// New(service) returns an http.Handler that serves:
//
//	GET    /get-tasks     200, JSON array of tasks (500 on storage failure)
//	POST   /post-tasks    {title, status}; 201 with the new task (400, 500)
//	PUT    /update-tasks  {currentTitle, newTitle, newStatus}; 200 with the
//	                      updated task (400, 404, 500)
//	DELETE /delete-tasks  {title}; 204, empty body (400, 404, 500)
//	GET    /healthz       200 {"status":"ok"}
//
// All error responses are {"error": "..."}. Storage failures get a generic
// message per route; the cause is only logged. A wrong method on a route is
// 405 and an unknown path is 404.
//
// Middleware wraps the whole server mux: request IDs (X-Request-ID, generated
// with google/uuid when absent), one slog access line per request, and
// per-route metrics. It passes WebSocket hijacks through.
package api
