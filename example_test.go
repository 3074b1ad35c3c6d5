package vectable_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/vectable"
	"github.com/hupe1980/vectable/index"
	"github.com/hupe1980/vectable/testutil"
)

func Example() {
	ctx := context.Background()

	db, err := vectable.Connect(ctx, "memory://example")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	tbl, err := db.CreateTable(ctx, "fruits", testutil.Reader([]testutil.Row{
		{ID: 1, Region: "south", Text: "ripe banana", Vector: []float32{0.9, 0.1}},
		{ID: 2, Region: "north", Text: "green apple", Vector: []float32{0.1, 0.9}},
	}, 2), vectable.ModeCreate)
	if err != nil {
		log.Fatal(err)
	}

	// Upsert by id.
	m, err := tbl.MergeInsert("id")
	if err != nil {
		log.Fatal(err)
	}
	err = m.WhenMatchedUpdateAll().
		WhenNotMatchedInsertAll().
		Execute(ctx, testutil.Reader([]testutil.Row{
			{ID: 2, Region: "north", Text: "red apple", Vector: []float32{0.2, 0.8}},
			{ID: 3, Region: "west", Text: "sour lemon", Vector: []float32{0.8, 0.3}},
		}, 2))
	if err != nil {
		log.Fatal(err)
	}

	if err := tbl.CreateIndex(ctx, "text", index.FTSParams{Stem: index.Ptr(true)}); err != nil {
		log.Fatal(err)
	}

	res, err := tbl.Search(ctx, vectable.Query{Vector: []float32{1, 0}, Limit: 2})
	if err != nil {
		log.Fatal(err)
	}
	defer res.Release()
	for res.Next() {
		rec := res.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			fmt.Println(rec.Column(0).ValueStr(i))
		}
	}

	n, _ := tbl.CountRows(ctx, "")
	fmt.Println("rows:", n)

	// Output:
	// 1
	// 3
	// rows: 3
}
