package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/staffdir/staffdir/pkg/config"
)

// Client stores and retrieves import files and their annotated error
// artifacts.
type Client struct {
	mc     *minio.Client
	bucket string
}

type ObjectInfo struct {
	Bucket     string `json:"bucket"`
	ObjectName string `json:"object_name"`
	URL        string `json:"url"`
}

func NewClient(cfg *config.StorageConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the configured bucket if it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
}

// Put uploads data under a timestamp-prefixed, normalized object name and
// returns where it landed.
func (c *Client) Put(ctx context.Context, data []byte, fileName, contentType string) (*ObjectInfo, error) {
	objectName := fmt.Sprintf("%s___%s", time.Now().Format("02-01-2006_15-04-05"), normalizeFileName(fileName))

	_, err := c.mc.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to store object %s: %w", objectName, err)
	}

	return &ObjectInfo{
		Bucket:     c.bucket,
		ObjectName: objectName,
		URL:        objectName,
	}, nil
}

func (c *Client) Get(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (c *Client) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := c.mc.StatObject(ctx, c.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// normalizeFileName collapses whitespace and lowercases the base name,
// keeping the extension. Long names are truncated so object keys stay sane.
func normalizeFileName(fileName string) string {
	fileName = strings.Join(strings.Fields(strings.TrimSpace(fileName)), " ")
	ext := ""
	if idx := strings.LastIndex(fileName, "."); idx >= 0 {
		ext = fileName[idx:]
		fileName = fileName[:idx]
	}
	fileName = strings.ToLower(strings.ReplaceAll(fileName, " ", "-"))
	if len(fileName) > 100 {
		fileName = fileName[:100]
	}
	return fileName + ext
}
