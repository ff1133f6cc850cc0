// Package infra contains technical adapters: the LP solvers, the MQTT
// schedule client, metrics sinks and the zerolog logger. These packages
// depend only on the interfaces defined in the core packages.
package infra
