// Package snapshot persists containers as self-describing binary blobs.
//
// A snapshot stores the full type tree, the data buffer, and the validity
// leaves of one container, framed with a magic number, a format version,
// and a trailing CRC-32C. The compression codec is recorded by stable name
// in the header, so readers never need out-of-band configuration.
//
// Snapshots are written to and read from any blobstore.Store, which covers
// local disk, S3, and MinIO backends. IO is paced through an optional
// resource.Controller so bulk snapshot traffic cannot starve foreground
// work.
package snapshot
