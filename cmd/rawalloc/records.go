package main

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/notfilippo/rawalloc/arrowmem"
	"github.com/notfilippo/rawalloc/testdata"
)

var (
	recordCount int
	recordRows  int
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Build Arrow records on accounted memory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		return runRecords(e, recordCount, recordRows)
	},
}

func init() {
	recordsCmd.Flags().IntVarP(&recordCount, "count", "n", testdata.DefaultRecordCount, "Number of records")
	recordsCmd.Flags().IntVar(&recordRows, "rows", testdata.DefaultRecordSize, "Rows per record")
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(e *env, count, rows int) error {
	checked := memory.NewCheckedAllocator(arrowmem.New(e.backend))

	records := make([]arrow.Record, 0, count)
	for i := range count {
		records = append(records, testdata.NewRecord(i, rows, checked))
		printVerbose("record %d built, bytes in use %d\n", i, e.backend.BytesInUse())
	}
	printInfo("%d records of %d rows: arrow %d bytes, accounted %d bytes\n",
		count, rows, checked.CurrentAlloc(), e.backend.BytesInUse())

	for _, rec := range records {
		rec.Release()
	}
	if n := checked.CurrentAlloc(); n != 0 {
		return fmt.Errorf("arrow still holds %d bytes", n)
	}
	printInfo("released, bytes in use %d\n", e.backend.BytesInUse())
	return e.finish()
}
