/*
Package bucket implements a storage.KeyValueDB on object storage through gocloud.dev/blob.
Each key is stored as one object named by the key's hex encoding, so listing a
bucket returns keys in key order.
*/
package bucket

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/janelia-flyem/voxchunk/dvid"
	"github.com/janelia-flyem/voxchunk/storage"
)

// OpenBucket returns a blob.Bucket for the given reference.
// The reference should be of the form:
//
//	gs://<bucketname>
//	s3://<bucketname>/<prefix>
//	vast://<endpoint>/<bucketname>
//	file:///<directory>
//	mem://
//
// or a bare bucket name, which is opened on Google Cloud Storage with default
// credentials.
func OpenBucket(ctx context.Context, ref string, logger dvid.Logger) (bucket *blob.Bucket, err error) {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		// Requires AWS credentials where gocloud can find them and AWS_REGION set.
		pathpart := strings.TrimPrefix(ref, "s3://")
		parts := strings.SplitN(pathpart, "/", 2)
		bucket, err = blob.OpenBucket(ctx, "s3://"+parts[0])
		if err != nil {
			logger.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if len(parts) == 2 && parts[1] != "" {
			prefix := strings.TrimSuffix(parts[1], "/") + "/"
			bucket = blob.PrefixedBucket(bucket, prefix)
		}

	case strings.HasPrefix(ref, "vast://"):
		// VAST S3-compatible storage.  AWS_REGION must be set though it is ignored,
		// and AWS_SHARED_CREDENTIALS_FILE should point to the access keys.
		parts := strings.SplitN(strings.TrimPrefix(ref, "vast://"), "/", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("vast ref must be of form 'vast://<endpoint>/<bucket>'")
		}
		url := fmt.Sprintf("s3://%s?endpoint=%s&s3ForcePathStyle=true", parts[1], parts[0])
		bucket, err = blob.OpenBucket(ctx, url)
		if err != nil {
			logger.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}

	case strings.Contains(ref, "://"):
		bucket, err = blob.OpenBucket(ctx, ref)
		if err != nil {
			logger.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}

	default:
		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, err
		}
		client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
		if err != nil {
			return nil, err
		}
		bucket, err = gcsblob.OpenBucket(ctx, client, ref, nil)
		if err != nil {
			logger.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
	}
	return bucket, nil
}

// DB is a storage.KeyValueDB on a blob.Bucket.
type DB struct {
	ref    string
	bucket *blob.Bucket
	log    dvid.Logger
}

// Open opens the bucket at ref.  See OpenBucket for accepted references.
func Open(ctx context.Context, ref string, logger dvid.Logger) (*DB, error) {
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	bucket, err := OpenBucket(ctx, ref, logger)
	if err != nil {
		return nil, err
	}
	logger.Infof("Opened bucket @ %s\n", ref)
	return New(ref, bucket, logger), nil
}

// New wraps an already opened bucket.  The DB takes ownership of it.
func New(ref string, bucket *blob.Bucket, logger dvid.Logger) *DB {
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	return &DB{ref: ref, bucket: bucket, log: logger}
}

func (db *DB) String() string {
	return fmt.Sprintf("bucket @ %s", db.ref)
}

// Get returns the object for a key, or nil if it doesn't exist.
func (db *DB) Get(ctx context.Context, k storage.Key) ([]byte, error) {
	v, err := db.bucket.ReadAll(ctx, k.Hex())
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Put writes the object for a key.
func (db *DB) Put(ctx context.Context, k storage.Key, v []byte) error {
	opts := &blob.WriterOptions{ContentType: "application/octet-stream"}
	return db.bucket.WriteAll(ctx, k.Hex(), v, opts)
}

// Delete removes the object for a key.  A missing object is not an error.
func (db *DB) Delete(ctx context.Context, k storage.Key) error {
	err := db.bucket.Delete(ctx, k.Hex())
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

// Keys returns all keys of a type by listing objects.
func (db *DB) Keys(ctx context.Context, t storage.KeyType) ([]storage.Key, error) {
	prefix := storage.Key{byte(t)}.Hex()
	it := db.bucket.List(&blob.ListOptions{Prefix: prefix})
	var keys []storage.Key
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		k, err := storage.KeyFromHex(obj.Key)
		if err != nil {
			db.log.Warningf("Skipping unrecognized object %q in %s\n", obj.Key, db)
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Close closes the bucket.
func (db *DB) Close() error {
	return db.bucket.Close()
}
