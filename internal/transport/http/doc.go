// Package http implements the HTTP handlers of the index server.
//
// Handlers are thin: they parse and validate the request, read the latest
// run from a RunService and render JSON with go-chi/render. Failures are
// passed to the shared errors.ErrorHandler, which responds with RFC 7807
// problem details.
//
// Routes, relative to where each handler is mounted:
//
//	GET  /health                        liveness and last run summary
//	GET  /fci/{horizon}                 published series (3y or 1y)
//	GET  /fci/{horizon}/latest          last published point
//	GET  /decomposition/{date}          per-lag contributions for a date
//	GET  /runs                          run history
//	POST /runs                          recompute from the configured inputs
//	GET  /events                        WebSocket stream of run events
package http
