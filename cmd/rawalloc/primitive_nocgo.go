//go:build !cgo

package main

import "github.com/notfilippo/rawalloc/accounting"

func cgoAllocator() (accounting.RawAllocator, bool) {
	return nil, false
}
