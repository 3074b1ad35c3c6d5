// Package s3 stores vectable tables in Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "databases/prod")
//
// Store commits manifests with conditional writes (If-None-Match), which S3
// supports natively. For buckets or S3-compatible services without
// conditional writes, wrap the store in a DDBCommitStore, which arbitrates
// commits through a DynamoDB table.
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large fragments
//   - CRC32C checksums on upload
//   - Automatic pagination for listing
package s3
