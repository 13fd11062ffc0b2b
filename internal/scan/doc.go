// Package scan discovers git repositories beneath a root directory.
//
// The Scanner prunes excluded directories, absorbs nested repositories into
// their parents as submodules, and persists the discovered path list so later
// runs skip traversal entirely.
package scan
