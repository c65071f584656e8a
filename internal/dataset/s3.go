package dataset

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Options configures access to S3-compatible object storage.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

const defaultS3Endpoint = "s3.amazonaws.com"

// parseS3URL splits "s3://bucket/some/key.csv" into bucket and key.
func parseS3URL(u string) (bucket, key string, err error) {
	rest := u[len("s3://"):]
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid s3 url %q: want s3://bucket/key", u)
	}
	return bucket, key, nil
}

func newS3Client(opt S3Options) (*minio.Client, error) {
	endpoint := opt.Endpoint
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
		Region: opt.Region,
	})
}

func loadS3(ctx context.Context, source string, opt LoadOptions) (*Dataset, error) {
	bucket, key, err := parseS3URL(source)
	if err != nil {
		return nil, unavailable(source, "", err)
	}
	name := path.Base(key)
	client, err := newS3Client(opt.S3)
	if err != nil {
		return nil, unavailable(name, "s3 client", err)
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, unavailable(name, "get object", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, unavailable(name, "read object", err)
	}
	if isXLSX(key) {
		src, err := xlsxFromBytes(data, opt.Sheet, opt.SheetIndex)
		if err != nil {
			return nil, unavailable(name, "", err)
		}
		return build(name, src)
	}
	return build(name, csvFromBytes(data, key))
}
