package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notfilippo/rawalloc/alloc"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Allocate 64 bytes, grow to 128, shrink to 32 and free",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		return runScenario(e)
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(e *env) error {
	var (
		l64  = alloc.MustLayout(64, 8)
		l128 = alloc.MustLayout(128, 8)
		l32  = alloc.MustLayout(32, 8)
	)

	b, err := e.backend.Allocate(l64)
	if err != nil {
		return fmt.Errorf("allocate %v: %w", l64, err)
	}
	for i, p := 0, b.Bytes(); i < len(p); i++ {
		p[i] = byte(i)
	}
	want := bytes.Clone(b.Bytes()[:32])
	printInfo("allocate %v -> %#x, bytes in use %d\n", l64, uintptr(b.Addr), e.backend.BytesInUse())

	grown, err := e.backend.Grow(b, l64, l128)
	if err != nil {
		e.backend.Deallocate(b, l64)
		return fmt.Errorf("grow to %v: %w", l128, err)
	}
	b = grown
	printInfo("grow %v -> %#x, bytes in use %d\n", l128, uintptr(b.Addr), e.backend.BytesInUse())

	shrunk, err := e.backend.Shrink(b, l128, l32)
	if err != nil {
		e.backend.Deallocate(b, l128)
		return fmt.Errorf("shrink to %v: %w", l32, err)
	}
	b = shrunk
	printInfo("shrink %v -> %#x, bytes in use %d\n", l32, uintptr(b.Addr), e.backend.BytesInUse())
	if !bytes.Equal(b.Bytes(), want) {
		e.backend.Deallocate(b, l32)
		return fmt.Errorf("prefix changed across grow and shrink")
	}

	e.backend.Deallocate(b, l32)
	printInfo("deallocate, bytes in use %d\n", e.backend.BytesInUse())
	return e.finish()
}
