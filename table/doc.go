// Package table defines the table and connection contracts implemented by
// the local engine and the remote client, and the merge-insert builder.
//
// A merge insert reconciles incoming rows with a table on join-key columns:
//
//	b, err := tbl.MergeInsert("id")
//	if err != nil {
//	    return err
//	}
//	err = b.WhenMatchedUpdateAll().
//	    WhenNotMatchedInsertAll().
//	    WhenNotMatchedBySourceDelete("region = 'west'").
//	    Execute(ctx, reader)
//
// The builder is single use. Execute fixes the configuration, hands it to the
// table and marks the builder spent.
package table
