package s3

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/windlass-dev/windlass/pkg/provider"
)

// Provider lists, heads, and reads objects in a single S3 bucket.
type Provider struct {
	client  *s3.Client
	bucket  string
	maxKeys int
}

var (
	_ provider.Provider     = (*Provider)(nil)
	_ provider.ObjectGetter = (*Provider)(nil)
)

// New builds a Provider for cfg.Bucket.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadSDKConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderS3,
			Bucket:   cfg.Bucket,
			Err:      err,
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	return &Provider{client: client, bucket: cfg.Bucket, maxKeys: maxKeys}, nil
}

// loadSDKConfig resolves credentials and region through the SDK default
// chain, letting explicit Config values win where they are set.
func loadSDKConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	awsCfg.Region = fallbackRegion(awsCfg.Region, cfg.Endpoint)
	return awsCfg, nil
}

// fallbackRegion fills in us-east-1 when the SDK resolved nothing and the
// target is real AWS. S3-compatible endpoints get no fallback because they
// mostly ignore the region and a wrong one can still break signing.
func fallbackRegion(sdkRegion, endpoint string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}

// List returns one page of objects under opts.Prefix.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		MaxKeys: aws.Int32(int32(p.pageSize(opts.MaxKeys))),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	out, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, p.fail("List", "", err)
	}

	result := &provider.ListResult{
		Objects:           make([]provider.ObjectSummary, 0, len(out.Contents)),
		ContinuationToken: aws.ToString(out.NextContinuationToken),
		IsTruncated:       aws.ToBool(out.IsTruncated),
	}
	for _, obj := range out.Contents {
		result.Objects = append(result.Objects, provider.ObjectSummary{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         trimETag(aws.ToString(obj.ETag)),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	return result, nil
}

// Head returns metadata for one object.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, p.fail("Head", key, err)
	}

	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{
			Key:          key,
			Size:         aws.ToInt64(out.ContentLength),
			ETag:         trimETag(aws.ToString(out.ETag)),
			LastModified: aws.ToTime(out.LastModified),
		},
		ContentType: aws.ToString(out.ContentType),
		Metadata:    out.Metadata,
	}, nil
}

// GetObject streams one object's content. The caller owns the body and
// must close it. Length is -1 when S3 did not report one, which keeps it
// distinct from a genuinely empty object.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, p.fail("Get", key, err)
	}

	length := int64(-1)
	if out.ContentLength != nil {
		length = *out.ContentLength
	}

	return out.Body, length, nil
}

// Close satisfies provider.Provider. The S3 client holds nothing that
// needs releasing.
func (p *Provider) Close() error {
	return nil
}

// pageSize resolves a per-call MaxKeys request against the configured
// default and the S3 hard cap.
func (p *Provider) pageSize(requested int) int {
	if requested <= 0 {
		requested = p.maxKeys
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// fail wraps err with operation context, normalizing recognizable S3
// failures to the provider sentinels.
func (p *Provider) fail(op, key string, err error) error {
	return &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   p.bucket,
		Key:      key,
		Err:      sentinelFor(err),
	}
}

// sentinelFor maps an SDK error onto the provider sentinels, returning err
// unchanged when nothing matches. Typed errors are checked first, then
// smithy API error codes, then raw message text, since moto and some
// proxies surface failures only as strings.
func sentinelFor(err error) error {
	var (
		notFound     *types.NotFound
		noSuchKey    *types.NoSuchKey
		noSuchBucket *types.NoSuchBucket
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return provider.ErrNotFound
	case errors.As(err, &noSuchBucket):
		return provider.ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if sentinel, ok := apiCodeSentinels[apiErr.ErrorCode()]; ok {
			return sentinel
		}
		return err
	}

	msg := err.Error()
	for _, row := range messageSentinels {
		for _, needle := range row.needles {
			if strings.Contains(msg, needle) {
				return row.sentinel
			}
		}
	}

	return err
}

var apiCodeSentinels = map[string]error{
	"NoSuchKey":             provider.ErrNotFound,
	"NotFound":              provider.ErrNotFound,
	"NoSuchBucket":          provider.ErrBucketNotFound,
	"AccessDenied":          provider.ErrAccessDenied,
	"Forbidden":             provider.ErrAccessDenied,
	"InvalidAccessKeyId":    provider.ErrInvalidCredentials,
	"SignatureDoesNotMatch": provider.ErrInvalidCredentials,
	"SlowDown":              provider.ErrThrottled,
	"Throttling":            provider.ErrThrottled,
	"RequestLimitExceeded":  provider.ErrThrottled,
	"ServiceUnavailable":    provider.ErrProviderUnavailable,
	"InternalError":         provider.ErrProviderUnavailable,
}

// messageSentinels is scanned in order, first match wins. A bare 404,
// which a missing bucket can also produce, reads as object-not-found.
var messageSentinels = []struct {
	sentinel error
	needles  []string
}{
	{provider.ErrNotFound, []string{"NoSuchKey", "NotFound", "404"}},
	{provider.ErrBucketNotFound, []string{"NoSuchBucket"}},
	{provider.ErrAccessDenied, []string{"AccessDenied", "Forbidden", "403"}},
	{provider.ErrInvalidCredentials, []string{"InvalidAccessKeyId", "SignatureDoesNotMatch"}},
	{provider.ErrThrottled, []string{"SlowDown", "Throttling", "429"}},
	{provider.ErrProviderUnavailable, []string{"ServiceUnavailable", "503"}},
}

// trimETag strips the quotes S3 wraps around ETag values.
func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
