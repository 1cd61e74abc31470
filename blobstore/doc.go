// Package blobstore provides the storage abstraction for persisted artifacts
// (group records and likelihood tables).
//
// BlobStore implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes via rename
//   - MemoryStore: in-memory, for tests
//   - CachingStore: read-through LRU over another store
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
