// Package events defines the scheduling events emitted on the event bus.
//
// Available event types:
//   - EntryScheduled: a slot was committed to the schedule
//   - IdleStep: the simulated clock advanced past a dead interval
//   - NightDone: one night finished scheduling
//   - PassDone: one campaign pass completed with its fairness outcome
package events
