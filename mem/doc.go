// Package mem provides raw allocation primitives for the accounting
// backend: anonymous mappings, libc's malloc family through cgo, and
// wrappers that track leaks or inject failures in tests.
package mem
