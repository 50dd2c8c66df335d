// Package attach downloads task attachments and prepares them for the
// primary backend: images are shrunk to fit the request budget, PDFs
// are reduced to best-effort extracted text. Attachment failures are
// never fatal; a broken download just drops that attachment.
package attach

import (
	"context"
	"io"
	"net/http"
	"time"

	"dataassist/internal/logging"
)

// maxDownloadBytes caps one attachment download.
const maxDownloadBytes = 25 << 20

// HTTPFetcher downloads attachments over plain HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher with the given per-download timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Download fetches the attachment bytes. Any failure returns nil; the
// caller omits the attachment and carries on.
func (f *HTTPFetcher) Download(ctx context.Context, url string) []byte {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		logging.Get(logging.CategoryAttach).Warn("bad attachment URL %q: %v", url, err)
		return nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		logging.Get(logging.CategoryAttach).Warn("attachment download failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Get(logging.CategoryAttach).Warn("attachment download returned status %d", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		logging.Get(logging.CategoryAttach).Warn("attachment read failed: %v", err)
		return nil
	}

	logging.AttachDebug("downloaded attachment: %d bytes", len(data))
	return data
}
