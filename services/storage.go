package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ObjectStore keeps the raw uploaded files. Upload returns a durable URL for
// the stored object; Fetch retrieves the bytes back, failing with
// ErrContentFetch on any non-success outcome.
type ObjectStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LocalStore writes objects to a directory on disk. The router serves that
// directory under /files, which is also the URL prefix Upload returns.
type LocalStore struct {
	dir        string
	httpClient *http.Client
}

// NewLocalStore creates the storage directory if needed.
func NewLocalStore(dir string, client *http.Client) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, httpClient: client}, nil
}

// Dir returns the directory served under /files.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Upload(_ context.Context, name string, data []byte) (string, error) {
	// filepath.Base guards against path traversal in user-supplied filenames.
	clean := filepath.Base(name)
	if err := os.WriteFile(filepath.Join(s.dir, clean), data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrContentFetch, clean, err)
	}
	return "/files/" + clean, nil
}

func (s *LocalStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	if name, ok := strings.CutPrefix(url, "/files/"); ok {
		data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
		if err != nil {
			return nil, fmt.Errorf("%w: read local object %s: %v", ErrContentFetch, name, err)
		}
		return data, nil
	}
	return fetchHTTP(ctx, s.httpClient, url)
}

// CloudinaryStore uploads raw files to Cloudinary and fetches them back over
// HTTP from the returned secure URL.
type CloudinaryStore struct {
	cld        *cloudinary.Cloudinary
	httpClient *http.Client
}

// NewCloudinaryStore creates a store from a CLOUDINARY_URL style connection
// string.
func NewCloudinaryStore(cloudinaryURL string, client *http.Client) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &CloudinaryStore{cld: cld, httpClient: client}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		ResourceType: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("%w: cloudinary upload: %v", ErrContentFetch, err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("%w: cloudinary returned no url", ErrContentFetch)
	}
	return resp.SecureURL, nil
}

func (s *CloudinaryStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	return fetchHTTP(ctx, s.httpClient, url)
}

func fetchHTTP(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request for %s: %v", ErrContentFetch, url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrContentFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: download %s returned status %d", ErrContentFetch, url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %v", ErrContentFetch, url, err)
	}
	return data, nil
}
