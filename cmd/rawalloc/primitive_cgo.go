//go:build cgo

package main

import (
	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/mem"
)

func cgoAllocator() (accounting.RawAllocator, bool) {
	return mem.CGoAllocator, true
}
