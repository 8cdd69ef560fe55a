// Package connection provides exponential backoff with jitter for
// transient retry loops.
//
// The host's only user of this package is the supervisor's listener
// bind retry: binding the fixed port can race another process during
// a restart (EADDRINUSE), and the supervisor waits out one backoff
// delay before retrying the bind rather than failing startup outright.
package connection
