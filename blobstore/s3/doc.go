// Package s3 implements blobstore.Store for Amazon S3.
//
// Reads use ranged GetObject requests so partial snapshot reads do not
// download whole objects. Streaming writes go through the SDK upload
// manager, which switches to multipart uploads for large blobs.
//
// The package also provides VersionStore, which keeps an atomic
// "current snapshot" pointer in DynamoDB. S3 has no compare-and-swap, so
// concurrent snapshot writers coordinate through DynamoDB conditional
// writes instead.
package s3
