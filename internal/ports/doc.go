// Package ports defines the interfaces that connect the application layer to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [Detector]: produces coordinate hits and gameplay signals
//   - [EventSink]: receives what a Detector produces
//   - [RecordSender]: delivers encoded wire records to the consumer process
//   - [Logger]: structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters, pkg/msgtransport) provide the implementations.
package ports
