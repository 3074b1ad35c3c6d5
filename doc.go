// Package vectable is an embedded vector database built on Arrow record
// batches.
//
// Tables hold rows with one or more vector columns. They are created from and
// queried as Arrow data, indexed with scalar, full-text and vector indexes,
// and updated in bulk through merge insert (upsert).
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	db, _ := vectable.Connect(ctx, "./data")
//	tbl, _ := db.CreateTable(ctx, "items", rows, vectable.ModeCreate)
//	_ = tbl.CreateIndex(ctx, "vector", index.IvfPqParams{DistanceType: index.Ptr("cosine")})
//
// Cloud mode:
//
//	db, _ := vectable.Connect(ctx, "s3://my-bucket/vectors",
//	    vectable.WithDynamoDBCommitTable("vectable-commits"))
//
// Remote mode:
//
//	db, _ := vectable.Connect(ctx, "db://mydb",
//	    vectable.WithAPIKey("sk_..."), vectable.WithRegion("us-east-1"))
//
// # Merge Insert
//
//	b, _ := tbl.MergeInsert("id")
//	err := b.WhenMatchedUpdateAll().
//	    WhenNotMatchedInsertAll().
//	    WhenNotMatchedBySourceDelete("region = 'west'").
//	    Execute(ctx, newRows)
//
// The policies are independent. Execute consumes the builder and applies the
// whole effect in one commit or not at all.
//
// # Storage
//
// Local, S3 and MinIO tables use the same layout: versioned manifests under
// _versions/, Arrow IPC fragment files under data/ and roaring deletion
// vectors under _deletions/. A commit is a conditional create of the next
// manifest version, so concurrent writers from several processes are safe
// on every store that supports it.
package vectable
