// Package source opens input data from the local file system or S3.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// ObjectGetter is the part of the S3 client used here.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens locations.  A nil S3 client is created on first use from the default AWS config.
type Opener struct {
	S3 ObjectGetter
}

// Open opens location, which is either a local path or s3://bucket/key.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !IsS3(location) {
		fh, e := os.Open(location)
		if e != nil {
			return nil, e
		}

		return fh, nil
	}

	bucket, key, e := SplitS3(location)
	if e != nil {
		return nil, e
	}

	if o.S3 == nil {
		var cfg aws.Config
		if cfg, e = config.LoadDefaultConfig(ctx); e != nil {
			return nil, fmt.Errorf("load aws config: %w", e)
		}

		o.S3 = s3.NewFromConfig(cfg)
	}

	var out *s3.GetObjectOutput
	if out, e = o.S3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); e != nil {
		return nil, fmt.Errorf("get %s: %w", location, e)
	}

	return out.Body, nil
}

// Open opens location with a default Opener.
func Open(ctx context.Context, location string) (io.ReadCloser, error) {
	return (&Opener{}).Open(ctx, location)
}

func IsS3(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), s3Scheme)
}

// SplitS3 splits s3://bucket/key/parts into bucket and key.
func SplitS3(location string) (bucket, key string, err error) {
	rest := location[len(s3Scheme):]
	ind := strings.Index(rest, "/")
	if ind <= 0 || ind == len(rest)-1 {
		return "", "", fmt.Errorf("invalid s3 location %s", location)
	}

	return rest[:ind], rest[ind+1:], nil
}
