package shipkit

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Client wraps the S3 client for Cloudflare R2 (or any S3-compatible
// endpoint).
type R2Client struct {
	Client     *s3.Client
	BucketName string
	Prefix     string
}

// r2Endpoint returns the configured endpoint or the account's R2 endpoint.
func r2Endpoint(u UploadSettings) string {
	if u.Endpoint != "" {
		return u.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", u.AccountID)
}

// NewR2Client initializes a new R2 client from the upload settings.
func NewR2Client(ctx context.Context, u UploadSettings) (*R2Client, error) {
	if (u.AccountID == "" && u.Endpoint == "") || u.AccessKey == "" || u.SecretKey == "" || u.Bucket == "" {
		return nil, fmt.Errorf("R2 credentials missing in configuration (R2_ACCOUNT_ID or R2_ENDPOINT, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME)")
	}

	options := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(u.AccessKey, u.SecretKey, "")),
		config.WithRegion("auto"),
	}
	if Debug {
		options = append(options, config.WithClientLogMode(aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	endpoint := r2Endpoint(u)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Client{Client: client, BucketName: u.Bucket, Prefix: u.Prefix}, nil
}

// objectKey places name under the client's prefix.
func (r *R2Client) objectKey(name string) string {
	if r.Prefix == "" {
		return name
	}
	return path.Join(r.Prefix, name)
}

// contentTypeFor picks the content type of a release file.
func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return "application/zip"
	case strings.HasSuffix(name, ".xz"):
		return "application/x-xz"
	case strings.HasSuffix(name, ".b3"), strings.HasSuffix(name, ".sig"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// UploadLocalFile uploads a file from disk to R2.
func (r *R2Client) UploadLocalFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	_, err = r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.BucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentTypeFor(key)),
	})
	return err
}

// Publish uploads every file under its base name and returns the object keys.
func (r *R2Client) Publish(ctx context.Context, files []string, rep *Reporter) ([]string, error) {
	var keys []string
	for _, f := range files {
		if f == "" {
			continue
		}
		key := r.objectKey(filepath.Base(f))
		if err := r.UploadLocalFile(ctx, key, f); err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", f, err)
		}
		rep.Step("Uploaded %s to %s/%s", filepath.Base(f), r.BucketName, key)
		keys = append(keys, key)
	}
	return keys, nil
}
