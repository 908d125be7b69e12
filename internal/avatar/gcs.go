package avatar

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/maykaila/memora/internal/log"
)

// FirebaseDownloadHost serves objects of Firebase Storage buckets.
const FirebaseDownloadHost = "https://firebasestorage.googleapis.com"

// downloadTokenKey is the object metadata key Firebase Storage reads download tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// bucketHandle abstracts a GCS bucket handle for tests.
type bucketHandle interface {
	Object(name string) objectHandle
}

type objectHandle interface {
	NewWriter(ctx context.Context, contentType string, metadata map[string]string) io.WriteCloser
	Delete(ctx context.Context) error
}

type gcsBucket struct{ bh *storage.BucketHandle }

func (b *gcsBucket) Object(name string) objectHandle {
	return &gcsObject{b.bh.Object(name)}
}

type gcsObject struct{ oh *storage.ObjectHandle }

func (o *gcsObject) NewWriter(ctx context.Context, contentType string, metadata map[string]string) io.WriteCloser {
	w := o.oh.NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	return w
}

func (o *gcsObject) Delete(ctx context.Context) error { return o.oh.Delete(ctx) }

// GCSConfig configures a GCSUploader.
type GCSConfig struct {
	Bucket string
	// CredentialsFile is a service account key. Empty uses application default credentials.
	CredentialsFile string
	// PublicBaseURL, when set, replaces the Firebase download URL with
	// PublicBaseURL/<object path>.
	PublicBaseURL string
	Logger        *log.Logger
}

// GCSUploader stores objects in a Google Cloud Storage (Firebase Storage) bucket.
type GCSUploader struct {
	bucketName    string
	publicBaseURL string
	client        *storage.Client
	bucket        bucketHandle
	logger        *log.Logger
	newToken      func() string
}

// NewGCSUploader creates the storage client.
func NewGCSUploader(ctx context.Context, cfg GCSConfig) (*GCSUploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	u := newGCSUploader(cfg, &gcsBucket{client.Bucket(cfg.Bucket)})
	u.client = client
	return u, nil
}

func newGCSUploader(cfg GCSConfig, bucket bucketHandle) *GCSUploader {
	return &GCSUploader{
		bucketName:    cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		bucket:        bucket,
		logger:        log.OrDefault(cfg.Logger).With("component", "avatar", "bucket", cfg.Bucket),
		newToken:      uuid.NewString,
	}
}

// Upload writes r to path and returns a URL that serves it.
func (u *GCSUploader) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	token := u.newToken()
	w := u.bucket.Object(path).NewWriter(ctx, contentType, map[string]string{downloadTokenKey: token})
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %q: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer for object %q: %w", path, err)
	}
	u.logger.Debug("object uploaded", "path", path)
	return u.objectURL(path, token), nil
}

// Delete removes the object at path.
func (u *GCSUploader) Delete(ctx context.Context, path string) error {
	if err := u.bucket.Object(path).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", path, err)
	}
	return nil
}

// Close releases the storage client.
func (u *GCSUploader) Close() error {
	if u.client == nil {
		return nil
	}
	return u.client.Close()
}

func (u *GCSUploader) objectURL(path, token string) string {
	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + path
	}
	return fmt.Sprintf("%s/v0/b/%s/o/%s?alt=media&token=%s",
		FirebaseDownloadHost, u.bucketName, url.PathEscape(path), url.QueryEscape(token))
}
