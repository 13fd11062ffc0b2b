// Package execshell provides structured helpers for invoking the git binary.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and represents command outcomes as result values
// so callers can continue past failing repositories.
package execshell
