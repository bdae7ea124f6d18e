package store

import (
	"context"
	"fmt"
	"io"

	"github.com/aimankahim/mcqsbank/backend/go/internal/apperr"

	"github.com/minio/minio-go/v7"
)

// BlobStore 保存上传的 PDF 原文件。
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MinIOBlobStore 是基于 MinIO 的 BlobStore。
type MinIOBlobStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOBlobStore 创建一个 MinIOBlobStore。
func NewMinIOBlobStore(client *minio.Client, bucket string) *MinIOBlobStore {
	return &MinIOBlobStore{client: client, bucket: bucket}
}

// Put 上传一个对象。
func (m *MinIOBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to store file", err)
	}
	return nil
}

// Get 读取一个对象，对象不存在时返回 NotFound。
func (m *MinIOBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to read file", err)
	}
	// GetObject 是惰性的，Stat 才会真正访问服务端。
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperr.New(apperr.NotFound, "PDF file not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to read file", err)
	}
	return obj, nil
}

// Delete 删除一个对象。
func (m *MinIOBlobStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 '%s' 失败: %w", key, err)
	}
	return nil
}
