// Package minio implements blobstore.Store using the MinIO client.
//
// MinIO is an S3-compatible object store; this package also works against
// Ceph, SeaweedFS, Garage, and other S3-compatible systems without pulling
// in the AWS SDK.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "snapshots/")
package minio
