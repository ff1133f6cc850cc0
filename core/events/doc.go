// Package events defines the planner events emitted on the event bus.
//
// Available event types:
//   - PlanEvent: a planner run finished, successfully or not
//   - ScheduleEvent: a schedule was handed to the device control channel
package events
