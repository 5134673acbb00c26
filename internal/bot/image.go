package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zombor/betslip-tracker/internal/ingest"
)

// ImageSource resolves chat file IDs into downloadable images
type ImageSource interface {
	Image(fileID, contentType string) ingest.Image
}

type telegramImages struct {
	api    Sender
	client *http.Client
}

func (t *telegramImages) Image(fileID, contentType string) ingest.Image {
	return &telegramImage{images: t, fileID: fileID, contentType: contentType}
}

// telegramImage resolves its download URL lazily so nothing is fetched
// before the pipeline asks for it
type telegramImage struct {
	images      *telegramImages
	fileID      string
	contentType string
}

func (t *telegramImage) ContentType() string {
	return t.contentType
}

func (t *telegramImage) Download(ctx context.Context, w io.Writer) error {
	fileURL, err := t.images.api.GetFileDirectURL(t.fileID)
	if err != nil {
		return fmt.Errorf("resolving file %s: %w", t.fileID, err)
	}
	remote := &ingest.RemoteImage{URL: fileURL, MIME: t.contentType, Client: t.images.client}
	return remote.Download(ctx, w)
}
