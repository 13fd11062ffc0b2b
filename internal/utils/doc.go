// Package utils hosts shared infrastructure for the watchdog: the zap logger
// factory and the viper-backed configuration loader.
package utils
