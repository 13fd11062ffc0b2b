// Package cache provides the durable key/value store that lets the watchdog
// skip repository discovery across process restarts.
package cache
