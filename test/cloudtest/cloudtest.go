// Package cloudtest points integration tests at a local moto server so the
// S3 provider can be exercised without real AWS credentials or buckets.
//
// Tests that import this package carry the cloudintegration build tag and
// call SkipIfUnavailable before touching storage:
//
//	func TestListExports(t *testing.T) {
//	    cloudtest.SkipIfUnavailable(t)
//	    bucket := cloudtest.CreateBucket(t, ctx)
//	    cloudtest.PutObject(t, ctx, bucket, "exports/june.csv", []byte("rows"))
//	    // ... exercise the provider ...
//	}
//
// Every test gets its own bucket and tears it down on cleanup, so fixtures
// never leak between tests and the moto server needs no reset.
package cloudtest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// TestAccessKeyID is the access key presented to moto, which accepts any.
	TestAccessKeyID = "testing"

	// TestSecretAccessKey is the secret key presented to moto.
	TestSecretAccessKey = "testing"
)

var (
	// Endpoint is the moto server address, overridable via MOTO_ENDPOINT.
	// Port 5555 stays clear of macOS AirTunes, which squats on 5000.
	Endpoint = envOr("MOTO_ENDPOINT", "http://localhost:5555")

	// Region is the region handed to the SDK, overridable via MOTO_REGION.
	Region = envOr("MOTO_REGION", "us-east-1")

	shared     *s3.Client
	sharedOnce sync.Once
	sharedErr  error
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Available reports whether the moto server answers on Endpoint.
func Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, Endpoint+"/moto-api/", nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// SkipIfUnavailable skips the test when no moto server is running.
func SkipIfUnavailable(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skipf("moto is not reachable at %s (start one with: moto_server -p 5555)", Endpoint)
	}
}

// s3Client returns the shared moto-backed S3 client, failing the test if the
// SDK configuration cannot be built.
func s3Client(t *testing.T) *s3.Client {
	t.Helper()

	sharedOnce.Do(func() {
		cfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				TestAccessKeyID,
				TestSecretAccessKey,
				"",
			)),
		)
		if err != nil {
			sharedErr = fmt.Errorf("load sdk config: %w", err)
			return
		}

		shared = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(Endpoint)
			o.UsePathStyle = true
		})
	})

	if sharedErr != nil {
		t.Fatalf("build moto client: %v", sharedErr)
	}
	return shared
}

// CreateBucket makes a bucket named after the test and registers cleanup
// that removes the bucket and everything in it.
func CreateBucket(t *testing.T, ctx context.Context) string {
	t.Helper()

	c := s3Client(t)
	name := bucketName(t)

	_, err := c.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		t.Fatalf("create bucket %s: %v", name, err)
	}

	t.Cleanup(func() {
		deleteBucket(t, context.Background(), name)
	})

	return name
}

// bucketName derives a bucket name from the test name. S3 caps names at 63
// characters, so long test names are truncated before the uniqueness suffix.
func bucketName(t *testing.T) string {
	name := strings.ToLower(t.Name())
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 50 {
		name = name[:50]
	}
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano()%100000)
}

// deleteBucket empties and removes a bucket. Failures are logged rather than
// fatal because cleanup runs after the test verdict is already in.
func deleteBucket(t *testing.T, ctx context.Context, bucket string) {
	t.Helper()

	c := s3Client(t)

	paginator := s3.NewListObjectsV2Paginator(c, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			t.Logf("warning: list objects in %s: %v", bucket, err)
			return
		}

		for _, obj := range page.Contents {
			_, err := c.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			})
			if err != nil {
				t.Logf("warning: delete object %s: %v", aws.ToString(obj.Key), err)
			}
		}
	}

	_, err := c.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		t.Logf("warning: delete bucket %s: %v", bucket, err)
	}
}

// PutObject uploads one fixture object.
func PutObject(t *testing.T, ctx context.Context, bucket, key string, content []byte) {
	t.Helper()

	c := s3Client(t)

	_, err := c.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		t.Fatalf("put object %s/%s: %v", bucket, key, err)
	}
}

// PutObjects uploads a fixture object per key with placeholder content.
func PutObjects(t *testing.T, ctx context.Context, bucket string, keys []string) {
	t.Helper()

	for _, key := range keys {
		PutObject(t, ctx, bucket, key, []byte("fixture: "+key))
	}
}
