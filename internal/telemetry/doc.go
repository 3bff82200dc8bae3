// Package telemetry sets up the OpenTelemetry tracer and meter providers used
// by graph execution spans. When telemetry is disabled nothing is exported
// and the global providers stay noop.
package telemetry
