// Package minio stores vectable tables in MinIO and other S3-compatible
// object stores (Ceph, SeaweedFS, Garage).
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "databases/prod")
//
// Commits rely on If-None-Match conditional writes. Services that ignore the
// header give no protection against concurrent writers; use a single writer
// per table with them.
package minio
