// Copyright 2025 James Ross
// Package keys holds the bit-exact Redis key schema shared by every
// component: producers, consumers, message guards, and the GC must all
// derive the same names from a consumer name for the scheme to hold.
package keys

import "fmt"

// Registry is the set of consumer names the GC scans.
const Registry = "orizuru:consumers"

// Heartbeats is the hash mapping consumer name to last-heartbeat timestamp.
const Heartbeats = "orizuru:heartbeats"

// Processing returns the per-consumer processing queue name.
func Processing(consumer string) string {
	return fmt.Sprintf("orizuru:consumers:%s:processing", consumer)
}

// Unacked returns the per-consumer unack queue name.
func Unacked(consumer string) string {
	return fmt.Sprintf("orizuru:consumers:%s:unacked", consumer)
}

// Heartbeat returns the per-consumer scalar heartbeat key (carries a TTL).
func Heartbeat(consumer string) string {
	return fmt.Sprintf("orizuru:consumers:%s:heartbeat", consumer)
}
