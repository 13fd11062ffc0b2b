// Package watchdog composes repository discovery, the durable cache, and the
// periodic monitor into one lifecycle, and exposes the watch and scan commands.
package watchdog
