// Package monitor runs the recurring change-detection loop over the scanned
// repository snapshot, committing and pushing whatever each tick finds.
package monitor
