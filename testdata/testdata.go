package testdata

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

const (
	DefaultRecordCount = 100
	DefaultRecordSize  = 100
)

var (
	Schema = arrow.NewSchema(
		[]arrow.Field{
			{Name: "integers", Type: arrow.PrimitiveTypes.Int32},
			{Name: "floats", Type: arrow.PrimitiveTypes.Float64},
			{Name: "labels", Type: arrow.BinaryTypes.String, Nullable: true},
		},
		nil,
	)
)

// NewRecord builds a record of length rows through allocator. Every
// third label is null so the validity bitmap gets allocated too.
func NewRecord(index, length int, allocator memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(allocator, Schema)
	defer b.Release()

	var (
		ints   []int32
		floats []float64
		labels []string
		valid  []bool
	)
	for i := range length {
		ints = append(ints, int32(index))
		floats = append(floats, float64(index)+0.5)
		labels = append(labels, "row")
		valid = append(valid, i%3 != 0)
	}

	b.Field(0).(*array.Int32Builder).Reserve(length)
	b.Field(0).(*array.Int32Builder).AppendValues(ints, nil)

	b.Field(1).(*array.Float64Builder).Reserve(length)
	b.Field(1).(*array.Float64Builder).AppendValues(floats, nil)

	b.Field(2).(*array.StringBuilder).Reserve(length)
	b.Field(2).(*array.StringBuilder).AppendValues(labels, valid)

	return b.NewRecord()
}
