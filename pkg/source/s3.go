package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/membufio/membuf/internal/logger"
)

// S3Config configures an S3-backed source.
type S3Config struct {
	Bucket string
	Key    string
	Region string

	// Endpoint overrides the S3 endpoint (MinIO, localstack). Path-style
	// addressing is forced when set.
	Endpoint string

	// Static credentials. When empty the default AWS credential chain is
	// used.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Source streams one S3 object through sequential ranged GETs. The body
// of the current GET is consumed until a seek invalidates it; the next read
// reopens at the new position with a Range header. Seeking is therefore
// supported but not fast.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
	size   uint64

	pos  uint64
	body io.ReadCloser // nil until the first read after open/seek
}

// OpenS3 opens an S3 object as a Source. The object size is captured with
// a HeadObject call; membuf requires a stable size for block layout.
func OpenS3(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3 source requires bucket and key")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(cfg.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("head s3://%s/%s: %w", cfg.Bucket, cfg.Key, err)
	}
	if head.ContentLength == nil || *head.ContentLength < 0 {
		return nil, ErrUnknownSize
	}

	return &S3Source{
		client: client,
		bucket: cfg.Bucket,
		key:    cfg.Key,
		size:   uint64(*head.ContentLength),
	}, nil
}

// open starts a GET at the current position, covering the rest of the
// object.
func (s *S3Source) open() error {
	if s.pos >= s.size {
		return io.EOF
	}
	rangeStr := fmt.Sprintf("bytes=%d-", s.pos)
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(rangeStr),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s %s: %w", s.bucket, s.key, rangeStr, err)
	}
	logger.Debug("s3 source: opened range", "bucket", s.bucket, "key", s.key, "pos", s.pos)
	s.body = out.Body
	return nil
}

func (s *S3Source) Read(p []byte) (int, error) {
	if s.body == nil {
		if err := s.open(); err != nil {
			return 0, err
		}
	}
	n, err := s.body.Read(p)
	if n > 0 {
		s.pos += uint64(n)
	}
	if err == io.EOF && s.pos < s.size {
		// The connection died short of the object end; the next read
		// reopens from the current position.
		_ = s.body.Close()
		s.body = nil
		if n > 0 {
			return n, nil
		}
		return 0, fmt.Errorf("s3 body ended at %d of %d", s.pos, s.size)
	}
	return n, err
}

func (s *S3Source) Seek(pos uint64) error {
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	if pos > s.size {
		pos = s.size
	}
	s.pos = pos
	return nil
}

func (s *S3Source) Tell() uint64 { return s.pos }

func (s *S3Source) Size() uint64 { return s.size }

func (s *S3Source) CanSeek() bool { return true }

// CanFastSeek is false: every seek costs a new ranged GET.
func (s *S3Source) CanFastSeek() bool { return false }

func (s *S3Source) Close() error {
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		return err
	}
	return nil
}
