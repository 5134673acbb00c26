package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// RemoteImage is an image served over HTTP, such as a chat platform's
// file download URL
type RemoteImage struct {
	URL    string
	MIME   string
	Client *http.Client
}

// ContentType returns the MIME type reported by the transport
func (r *RemoteImage) ContentType() string {
	return r.MIME
}

// Download streams the image body into w
func (r *RemoteImage) Download(ctx context.Context, w io.Writer) error {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image download returned status %d", resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("copying image: %w", err)
	}
	return nil
}
