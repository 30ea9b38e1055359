package jagged_test

import (
	"fmt"
	"log"

	"github.com/wzqhbustb/jagged/jagged"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/operations"
)

// Example demonstrates basic usage of the jagged API
func Example() {
	// Build an array from nested Go values
	arr, err := jagged.FromIterable([]any{
		[]any{1, 2, 3, nil},
		[]any{},
		[]any{4, 5},
	}, map[string]string{"source": "example"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(arr.Len(), arr.Type())
	fmt.Println(arr)

	// Slice every list
	inner, err := arr.Slice(layout.All(), layout.Span(1, 3))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(inner)

	// Reduce the innermost axis, then everything
	perList, err := arr.Sum(operations.Axis(-1))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(perList)

	total, err := arr.Sum()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(total)

	// Serialize and read back
	blob, err := arr.MarshalBinary()
	if err != nil {
		log.Fatal(err)
	}
	back, err := jagged.Unmarshal(blob)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(back.Equal(arr), back.ID() == arr.ID(), back.Metadata()["source"])

	// Output:
	// 3 3 * var * ?int64
	// [[1, 2, 3, None], [], [4, 5]]
	// [[2, 3], [], [5]]
	// [6, 0, 9]
	// 15
	// true true example
}
