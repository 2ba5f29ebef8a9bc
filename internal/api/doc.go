// Package api provides the HTTP REST API and WebSocket event stream for the
// record store.
//
// Routes live under /api/v1. Tables, columns, records and relations map onto
// store.Store operations; /audit pages through the mutation journal; /ws
// streams mutation events from the notify broker to subscribed clients.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
