// Package providers implements the service provider system.
//
// Service providers expose capabilities to applications through a
// standardized tool-based interface.
//
// Available Providers:
//   - IPC: Record fifos, byte pipes, shared memory, event pairs
//   - Clipboard: Multi-format clipboard with history and subscriptions
//
// Provider Interface:
//   - Definition(): Returns service metadata and tool definitions
//   - Execute(): Executes a tool with parameters and context
//
// Example Usage:
//
//	p := ipc.NewProvider(manager)
//	result, err := p.Execute(ctx, "ipc.create_fifo", params, appCtx)
package providers
