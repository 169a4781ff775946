// Package log wraps the standard library logger with named, leveled
// loggers.
//
//	l := log.ForService("search")
//	l.Infof("query %q returned %d placenames", q, n)
//	l.Debugf("raw document: %s", body)
//
// Every line carries the level and the service name:
//
//	2026/10/17 10:00:00 INFO [search] query "amb" returned 12 placenames
//
// Debug lines are dropped unless debug is enabled globally (SetGlobalDebug,
// the --debug flag) or for a single service (EnableDebugFor).
//
// The package name collides with the standard library; alias one of them
// when both are needed.
//
// All functions are safe for concurrent use. Tests redirect output with
// SetOutput.
package log
