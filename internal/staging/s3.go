package staging

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	defaultPresignExpiry = time.Hour
	defaultS3Timeout     = 60 * time.Second
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 stores the payload as a timestamped object and returns a presigned
// GET URL for it.
type S3 struct {
	bucket  string
	prefix  string
	expiry  time.Duration
	timeout time.Duration
	put     objectPutter
	presign objectPresigner
	now     func() time.Time
	log     *logger.Logger
}

// NewS3 builds an S3 uploader from the default AWS credential chain. Each
// Stage call is bounded by timeout.
func NewS3(ctx context.Context, bucket, region, prefix string, expiry, timeout time.Duration, log *logger.Logger) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 staging requires a bucket", model.ErrConfiguration)
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", model.ErrConfiguration, err)
	}
	client := s3.NewFromConfig(awsCfg)
	return newS3(bucket, prefix, expiry, timeout, client, s3.NewPresignClient(client), log), nil
}

func newS3(bucket, prefix string, expiry, timeout time.Duration, put objectPutter, presign objectPresigner, log *logger.Logger) *S3 {
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	if timeout <= 0 {
		timeout = defaultS3Timeout
	}
	return &S3{
		bucket:  bucket,
		prefix:  prefix,
		expiry:  expiry,
		timeout: timeout,
		put:     put,
		presign: presign,
		now:     time.Now,
		log:     log.With("staging"),
	}
}

func (s *S3) Name() string { return "s3" }

// ObjectKey returns prefix/priced_catalog_YYYYMMDD_HHMMSS.json for t.
func (s *S3) ObjectKey(t time.Time) string {
	return path.Join(s.prefix, "priced_catalog_"+t.UTC().Format("20060102_150405")+".json")
}

func (s *S3) Stage(ctx context.Context, p Payload) (Staged, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := s.ObjectKey(s.now())

	_, err := s.put.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(p.Data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Staged{}, stagingErr("put s3://%s/%s: %v", s.bucket, key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return Staged{Key: key}, stagingErr("presign s3://%s/%s: %v", s.bucket, key, err)
	}
	if err := absoluteURL(req.URL); err != nil {
		return Staged{Key: key}, err
	}

	s.log.Info().Str("bucket", s.bucket).Str("key", key).Dur("expiry", s.expiry).Msg("catalog staged")
	return Staged{Location: req.URL, Key: key}, nil
}
