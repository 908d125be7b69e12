// Package avatar uploads profile pictures and links them to the user profile.
package avatar

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/maykaila/memora/internal/api"
	"github.com/maykaila/memora/internal/errors"
	"github.com/maykaila/memora/internal/log"
	"github.com/maykaila/memora/internal/metrics"
)

// MaxSize is the largest accepted picture.
const MaxSize = 5 << 20

// Uploader stores objects and returns a URL that serves them.
type Uploader interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (url string, err error)
	Delete(ctx context.Context, path string) error
}

// ProfileUpdater is the part of the backend client the service needs.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) error
}

// Service sets profile pictures.
type Service struct {
	uploader Uploader
	profiles ProfileUpdater
	logger   *log.Logger
	metrics  *metrics.Metrics
	newID    func() string
}

// NewService creates a Service. logger and m may be nil.
func NewService(uploader Uploader, profiles ProfileUpdater, logger *log.Logger, m *metrics.Metrics) *Service {
	return &Service{
		uploader: uploader,
		profiles: profiles,
		logger:   log.OrDefault(logger).With("component", "avatar"),
		metrics:  m,
		newID:    uuid.NewString,
	}
}

// ObjectPath is where a picture for uid is stored.
func ObjectPath(uid, id, ext string) string {
	return fmt.Sprintf("profilePictures/%s/%s%s", uid, id, strings.ToLower(ext))
}

// SetProfilePicture uploads the image at file and stores its URL on the
// profile of uid. If the profile update fails the upload is removed.
func (s *Service) SetProfilePicture(ctx context.Context, uid, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewFileNotFoundError(file)
		}
		return "", errors.Wrap(errors.ErrCodeStorageUpload, "failed to open picture", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageUpload, "failed to open picture", err)
	}
	if info.Size() > MaxSize {
		return "", errors.New(errors.ErrCodeStorageUpload, fmt.Sprintf("picture is %d bytes, the limit is %d", info.Size(), MaxSize)).
			WithSuggestion("Resize the image and try again")
	}

	contentType, err := sniff(f, filepath.Ext(file))
	if err != nil {
		return "", err
	}

	path := ObjectPath(uid, s.newID(), filepath.Ext(file))
	url, err := s.uploader.Upload(ctx, path, f, contentType)
	if err != nil {
		s.metrics.Upload("failed")
		return "", errors.Wrap(errors.ErrCodeStorageUpload, "failed to upload picture", err).
			WithSuggestion("Check storage.bucket and storage.credentials_file in your configuration")
	}

	if err := s.profiles.UpdateProfile(ctx, api.UpdateProfileRequest{ProfilePicture: url}); err != nil {
		s.metrics.Upload("orphaned")
		if derr := s.uploader.Delete(ctx, path); derr != nil {
			s.logger.WithError(derr).Warn("failed to remove uploaded picture", "path", path)
		}
		return "", err
	}

	s.metrics.Upload("ok")
	s.logger.Info("profile picture updated", "uid", uid, "path", path)
	return url, nil
}

// sniff detects the image type from content and rewinds f.
func sniff(f io.ReadSeeker, ext string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(errors.ErrCodeStorageUpload, "failed to read picture", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageUpload, "failed to read picture", err)
	}

	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		if byExt := mime.TypeByExtension(strings.ToLower(ext)); strings.HasPrefix(byExt, "image/") {
			contentType = byExt
		} else {
			return "", errors.New(errors.ErrCodeStorageUpload, "file is not an image ("+contentType+")").
				WithSuggestion("Use a PNG, JPEG, GIF or WebP file")
		}
	}
	return contentType, nil
}
