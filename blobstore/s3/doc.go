// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("artifacts/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	eng, err := ontoinfer.New(tree, obs, corr, ontoinfer.WithArtifactStore(store))
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large likelihood tables
//   - Automatic pagination for listing
//   - Configurable prefix for per-run isolation
package s3
