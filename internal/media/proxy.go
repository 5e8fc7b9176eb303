// ABOUTME: Streams stored recording artifacts from the provider's CDN to callers
// ABOUTME: Passes through upstream content headers with sensible fallbacks

package media

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/notefold/notetaker/internal/store"
)

const fallbackContentType = "application/octet-stream"

// Proxy streams an artifact's remote bytes to a caller-supplied sink.
type Proxy struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewProxy creates a media proxy. No client timeout is set: artifact
// downloads can be large, and the request context bounds the transfer.
func NewProxy() *Proxy {
	return &Proxy{
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("component", "media"),
	}
}

// ServeArtifact streams the artifact's remote bytes to the response writer.
// Upstream Content-Type and Content-Length are passed through; when upstream
// omits the content type, defaultContentType is used, else a generic binary
// type. A missing download URL is a 404; an unreachable upstream is a 503.
func (p *Proxy) ServeArtifact(w http.ResponseWriter, r *http.Request, artifact *store.Artifact, defaultContentType string) {
	if artifact.DownloadURL == "" {
		http.Error(w, "artifact has no download URL", http.StatusNotFound)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, artifact.DownloadURL, nil)
	if err != nil {
		http.Error(w, "invalid artifact URL", http.StatusServiceUnavailable)
		return
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("fetching artifact upstream failed", "bot_id", artifact.BotID, "kind", artifact.Kind, "error", err)
		http.Error(w, "artifact source unavailable", http.StatusServiceUnavailable)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("artifact upstream returned error", "bot_id", artifact.BotID, "kind", artifact.Kind, "status", resp.StatusCode)
		http.Error(w, fmt.Sprintf("artifact source returned %d", resp.StatusCode), http.StatusServiceUnavailable)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	if contentType == "" {
		contentType = fallbackContentType
	}
	w.Header().Set("Content-Type", contentType)
	if length := resp.Header.Get("Content-Length"); length != "" {
		w.Header().Set("Content-Length", length)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are already written; all we can do is log the broken copy.
		p.logger.Debug("artifact stream interrupted", "bot_id", artifact.BotID, "kind", artifact.Kind, "error", err)
	}
}
