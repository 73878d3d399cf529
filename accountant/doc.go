// Package accountant holds host-side accounting sinks that receive the
// byte deltas reported by the accounting backend.
package accountant
