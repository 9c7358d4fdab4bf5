// Package infra groups the adapters behind the core interfaces: the MQTT
// schedule publisher, metrics sinks, the run store, remote tariff sources
// and error monitoring.
package infra
