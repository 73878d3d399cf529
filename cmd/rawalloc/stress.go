package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/notfilippo/rawalloc/alloc"
)

var (
	stressWorkers    int
	stressIterations int
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run concurrent allocate/grow/shrink/free cycles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		return runStress(e, stressWorkers, stressIterations)
	},
}

func init() {
	stressCmd.Flags().IntVarP(&stressWorkers, "workers", "w", 8, "Concurrent workers")
	stressCmd.Flags().IntVarP(&stressIterations, "iterations", "i", 1000, "Cycles per worker")
	rootCmd.AddCommand(stressCmd)
}

func runStress(e *env, workers, iterations int) error {
	a := alloc.Synchronized(e.backend)

	var group errgroup.Group
	for w := range workers {
		group.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(w), uint64(iterations)))
			for range iterations {
				if err := cycle(a, rng); err != nil {
					return fmt.Errorf("worker %d: %w", w, err)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	printInfo("%d workers x %d cycles, bytes in use %d, peak %d\n",
		workers, iterations, e.backend.BytesInUse(), e.limiter.Peak())
	return e.finish()
}

// cycle runs one allocate, grow zeroed, shrink, deallocate round.
func cycle(a alloc.Allocator, rng *rand.Rand) error {
	align := uintptr(1) << rng.IntN(8)
	size := uintptr(rng.IntN(4096))

	l := alloc.MustLayout(size, align)
	b, err := a.Allocate(l)
	if err != nil {
		return err
	}

	grown := alloc.MustLayout(size+uintptr(rng.IntN(4096)), align)
	nb, err := a.GrowZeroed(b, l, grown)
	if err != nil {
		a.Deallocate(b, l)
		return err
	}
	b, l = nb, grown

	shrunk := alloc.MustLayout(uintptr(rng.IntN(int(l.Size)+1)), align)
	nb, err = a.Shrink(b, l, shrunk)
	if err != nil {
		a.Deallocate(b, l)
		return err
	}

	a.Deallocate(nb, shrunk)
	return nil
}
