package nested_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/nested"
	"github.com/hupe1980/nested/blobstore"
	"github.com/hupe1980/nested/typedesc"
)

func Example() {
	// 4 * {id: int64, score: ?float64}
	typ := typedesc.FixedDim(4, typedesc.Record(
		typedesc.Field{Name: "id", Type: typedesc.Scalar(typedesc.Int64)},
		typedesc.Field{Name: "score", Type: typedesc.Optional(typedesc.Scalar(typedesc.Float64))},
	))

	c, err := nested.New(typ)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	// Optional elements are NA until marked valid.
	if err := c.SetFloat(0.92, 1, 1); err != nil {
		log.Fatal(err)
	}
	if err := c.SetValid(1, 1); err != nil {
		log.Fatal(err)
	}

	for i := int64(0); i < 2; i++ {
		na, _ := c.IsNA(i, 1)
		fmt.Printf("row %d score missing: %v\n", i, na)
	}

	// Output:
	// row 0 score missing: true
	// row 1 score missing: false
}

func Example_snapshot() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	typ := typedesc.VarDim(typedesc.Optional(typedesc.Scalar(typedesc.Int32)), []int64{0, 2, 5})

	c, err := nested.New(typ)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	if err := c.SetInt(7, 1, 2); err != nil {
		log.Fatal(err)
	}
	if err := c.SetValid(1, 2); err != nil {
		log.Fatal(err)
	}

	if err := nested.Save(ctx, store, "ragged", c); err != nil {
		log.Fatal(err)
	}

	restored, err := nested.Load(ctx, store, "ragged")
	if err != nil {
		log.Fatal(err)
	}
	defer restored.Close()

	v, _ := restored.Int(1, 2)
	valid, _ := restored.IsValid(1, 2)
	fmt.Printf("value %d, valid %v\n", v, valid)

	// Output:
	// value 7, valid true
}
