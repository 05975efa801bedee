package media

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader stores an uploaded image and returns a stable, fetchable URL.
// The chat core treats the URL as an opaque string; message bodies of
// kind image carry it verbatim.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, name string) (string, error)
}

// CloudinaryUploader stores images in Cloudinary.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary creates an uploader from a cloudinary:// credential URL.
func NewCloudinary(credentialURL, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(credentialURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	if folder == "" {
		folder = "shopchat"
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

// Upload stores the image and returns its secure delivery URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader, name string) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: name,
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("upload image: empty url in response")
	}
	return resp.SecureURL, nil
}
