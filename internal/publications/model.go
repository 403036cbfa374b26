// Package publications manages the news posts shown on the public site.
package publications

import (
	"fmt"
	"io"
	"time"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

const (
	// MaxImages bounds the gallery of a single publication.
	MaxImages = 10
	// MaxImageBytes bounds a single uploaded image.
	MaxImageBytes = 8 << 20
)

var (
	ErrNotFound      = fmt.Errorf("%w: publication", httpx.ErrNotFound)
	ErrImageTooLarge = fmt.Errorf("%w: image exceeds the upload limit", httpx.ErrValidation)
)

// Publication is a post with a cover and an ordered image gallery.
type Publication struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CoverURL    string    `json:"cover_url"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Images      []Image   `json:"images"`
}

// Image is one stored picture of a publication. Position 0 is the cover.
type Image struct {
	ID        int64  `json:"id"`
	ObjectKey string `json:"-"`
	URL       string `json:"url"`
	Position  int    `json:"position"`
}

// Input carries the text fields of a new publication.
type Input struct {
	Title       string
	Description string
	Category    string
}

// ImageUpload is a file received from the admin form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
