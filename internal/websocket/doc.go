// Package websocket pushes index run events to connected clients.
//
// A Hub owns the set of clients and is registered with the run manager as a
// pipeline.Notifier. Each run produces a run:started message followed by
// run:completed or run:failed carrying the run summary. Every message is a
// JSON envelope:
//
//	{"type":"run:completed","data":{...},"timestamp":"...","trace_id":"..."}
//
// Clients do not send commands; anything they send only keeps the
// connection alive.
package websocket
