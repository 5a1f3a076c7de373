// Package events defines the poll loop events emitted on the event bus.
//
// Available event types:
//   - PollEvent: completed poll cycle snapshot
//   - SessionEvent: charging session opened, updated or closed
//   - ActuationEvent: charger start/stop command issued
package events
