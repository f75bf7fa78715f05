package storage

import "context"

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ObjectStorage abstracts the S3-compatible bucket used to sync model
// artifacts between training hosts.
type ObjectStorage interface {
	UploadObject(ctx context.Context, key, srcPath string) error
	DownloadObject(ctx context.Context, key, destPath string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
