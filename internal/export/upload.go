package export

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/resilience"
)

// ObjectStore is the subset of *minio.Client used by Uploader.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// StorageConfig locates the bucket that receives exported workbooks.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// NewMinioClient connects to an S3-compatible endpoint.
func NewMinioClient(cfg StorageConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, eris.New("export: storage endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "export: minio client")
	}
	return client, nil
}

// Uploader publishes budget workbooks.
type Uploader struct {
	client ObjectStore
	bucket string
	region string
	retry  resilience.RetryConfig
}

// NewUploader creates an Uploader. A zero retry config uses the defaults.
func NewUploader(client ObjectStore, bucket, region string, retry resilience.RetryConfig) *Uploader {
	retry.ShouldRetry = retryable
	retry.OnRetry = resilience.RetryLogger("object-storage", "put")
	return &Uploader{client: client, bucket: bucket, region: region, retry: retry}
}

// ObjectKey is where the workbook of rec is stored.
func ObjectKey(rec *model.BudgetRecord) string {
	return path.Join("escritorios", rec.EscritorioID, "orcamentos", FileName(rec))
}

// EnsureBucket creates the bucket when missing.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return eris.Wrapf(err, "export: check bucket %s", u.bucket)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
		return eris.Wrapf(err, "export: create bucket %s", u.bucket)
	}
	zap.L().Info("export: bucket created", zap.String("bucket", u.bucket))
	return nil
}

// Upload renders rec and stores it, returning the object key.
func (u *Uploader) Upload(ctx context.Context, rec *model.BudgetRecord) (string, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rec); err != nil {
		return "", err
	}
	key := ObjectKey(rec)
	data := buf.Bytes()

	info, err := resilience.DoVal(ctx, u.retry, func(ctx context.Context) (minio.UploadInfo, error) {
		return u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: ContentType,
			UserMetadata: map[string]string{
				"escritorio": rec.EscritorioID,
				"status":     string(rec.Status),
			},
		})
	})
	if err != nil {
		return "", eris.Wrapf(err, "export: upload %s", key)
	}

	zap.L().Info("export: workbook uploaded",
		zap.String("bucket", u.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size),
	)
	return key, nil
}

func retryable(err error) bool {
	if resp := minio.ToErrorResponse(err); resp.StatusCode != 0 {
		return resilience.IsTransientHTTPStatus(resp.StatusCode)
	}
	return resilience.IsTransient(err)
}
