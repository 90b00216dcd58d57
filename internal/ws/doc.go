// Package ws provides WebSocket streaming of clipboard changes.
//
// Clients connect once and receive a JSON event for every clipboard
// copy and clear, tagged with a monotonic sequence number so missed
// updates are detectable.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established, carries the current sequence number
//   - pong: Ping reply
//   - copy: New clipboard entry (base64 data, format)
//   - clear: History was cleared
//
// Example Usage:
//
//	handler := ws.NewHandler(store, logger)
//	router.GET("/ws/clipboard", handler.HandleConnection)
package ws
