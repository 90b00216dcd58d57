// Package service provides the service registry for provider management.
//
// The registry maintains a catalog of available service providers and
// dispatches namespaced tool calls ("service.tool") to the owning provider.
//
// Components:
//   - Registry: Central service catalog
//   - Provider: Interface for service implementations
//
// Features:
//   - Thread-safe service registration
//   - Category-based filtering
//   - Tool execution with context passing
//   - Service statistics
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(ipcProvider)
//	result, err := registry.Execute(ctx, "ipc.create_fifo", params, appCtx)
package service
