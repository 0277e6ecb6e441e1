package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config configures the S3-compatible backend, grounded on the
// teacher's internal/artifacts/s3_store.go (same field set, same
// aws-sdk-go-v2 client construction path), selected when the process
// environment sets STORAGE_TYPE=s3 (spec §6).
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Store implements Store against an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3Store from cfg, loading AWS credentials via the
// default provider chain unless static credentials are supplied.
func NewS3Store(ctx context.Context, cfg *S3Config) (*S3Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("objectstore: s3 config is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("objectstore: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	k := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &k,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("objectstore: s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	k := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &k})
	if err != nil {
		if isNotFound(err) {
			return nil, &ErrNotExist{Key: key}
		}
		return nil, fmt.Errorf("objectstore: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) GetParsed(ctx context.Context, key string) (any, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if _, ok := err.(*ErrNotExist); ok {
			return parseByExtension(key, nil)
		}
		return nil, err
	}
	return parseByExtension(key, data)
}

// Append is not native to S3; it implements the same effect via a
// read-modify-write, matching spec §6's "always terminates with a
// newline" contract for the object's final bytes.
func (s *S3Store) Append(ctx context.Context, key string, line string) error {
	existing, err := s.Get(ctx, key)
	if err != nil {
		if _, ok := err.(*ErrNotExist); !ok {
			return err
		}
		existing = nil
	}
	return s.Put(ctx, key, append(existing, []byte(line+"\n")...))
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	k := s.objectKey(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &k})
	if err != nil {
		return fmt.Errorf("objectstore: s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	k := s.objectKey(key)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &k})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("objectstore: s3 head %s: %w", key, err)
}

func (s *S3Store) listAllRaw(ctx context.Context, prefix string) ([]types.Object, error) {
	var objs []types.Object
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            aws.String(s.objectKey(prefix)),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("objectstore: s3 list: %w", err)
		}
		objs = append(objs, out.Contents...)
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Slice(objs, func(i, j int) bool {
		ti, tj := objs[i].LastModified, objs[j].LastModified
		if ti == nil || tj == nil {
			return false
		}
		return ti.Before(*tj)
	})
	return objs, nil
}

func (s *S3Store) stripPrefix(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

func (s *S3Store) List(ctx context.Context) ([]string, error) {
	objs, err := s.listAllRaw(ctx, "")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		if o.Key != nil {
			keys = append(keys, s.stripPrefix(*o.Key))
		}
	}
	return keys, nil
}

func (s *S3Store) FindByPrefix(ctx context.Context, prefix string) ([]string, error) {
	objs, err := s.listAllRaw(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		if o.Key != nil {
			keys = append(keys, s.stripPrefix(*o.Key))
		}
	}
	return keys, nil
}

func (s *S3Store) FindByExtension(ctx context.Context, ext string) ([]string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range all {
		if strings.HasSuffix(k, ext) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *S3Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		data, err := s.Get(ctx, k)
		if err != nil {
			if _, ok := err.(*ErrNotExist); ok {
				continue
			}
			return nil, err
		}
		out[k] = data
	}
	return out, nil
}

func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.BucketExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &s.bucket})
	if err != nil {
		return fmt.Errorf("objectstore: s3 create bucket: %w", err)
	}
	return nil
}

func (s *S3Store) BucketExists(ctx context.Context) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("objectstore: s3 head bucket: %w", err)
}

func (s *S3Store) IsHealthy(ctx context.Context) bool {
	ok, err := s.BucketExists(ctx)
	return err == nil && ok
}

func (s *S3Store) Path(key string) string {
	if key == "" {
		return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.objectKey(key))
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := strings.ToLower(apiErr.ErrorCode())
		return code == "notfound" || code == "nosuchkey" || code == "nosuchbucket"
	}
	return false
}
