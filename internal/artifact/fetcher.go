// Package artifact downloads versioned database-engine releases, falling back
// to a bundled copy when the release host is unreachable.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	werrors "github.com/py-swift/wheelsite/internal/errors"
	"github.com/py-swift/wheelsite/internal/metrics"
	"github.com/py-swift/wheelsite/internal/retry"
)

// Fetcher retrieves a release artifact by tag. Exactly one source wins per
// fetch: the remote artifact when reachable, otherwise the bundled fallback.
type Fetcher struct {
	// BaseURL is the release host root; the artifact URL is
	// <BaseURL>/releases/download/<tag>/<name>.
	BaseURL string

	// Client is the HTTP client; a nil client gets a 30s-timeout default.
	Client *http.Client

	// Policy controls download retries for transient failures.
	Policy retry.Policy

	// Fallback supplies the bundled artifact bytes. A nil Fallback means no
	// bundled copy exists.
	Fallback func() ([]byte, error)

	// Recorder receives fetch outcome metrics.
	Recorder metrics.Recorder
}

// NewFetcher creates a fetcher with a default HTTP client.
func NewFetcher(baseURL string, policy retry.Policy, fallback func() ([]byte, error), rec metrics.Recorder) *Fetcher {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Fetcher{
		BaseURL:  baseURL,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Policy:   policy,
		Fallback: fallback,
		Recorder: rec,
	}
}

// URL returns the release download URL for a tag and artifact name.
func (f *Fetcher) URL(tag, name string) string {
	return fmt.Sprintf("%s/releases/download/%s/%s", f.BaseURL, tag, name)
}

// Fetch downloads the artifact for tag into destPath. On download failure it
// degrades to the bundled fallback. The destination is written atomically via
// a temp file and rename, so a failed fetch never leaves a partial file.
func (f *Fetcher) Fetch(ctx context.Context, tag, name, destPath string) (metrics.FetchOutcome, error) {
	data, err := f.download(ctx, tag, name)
	if err == nil {
		if werr := writeAtomic(destPath, data); werr != nil {
			f.Recorder.IncFetchOutcome(metrics.FetchFailed)
			return metrics.FetchFailed, werr
		}
		f.Recorder.IncFetchOutcome(metrics.FetchRemote)
		slog.Info("Fetched release artifact", "tag", tag, "name", name, "bytes", len(data))
		return metrics.FetchRemote, nil
	}
	slog.Warn("Release artifact download failed, trying bundled copy", "tag", tag, "error", err)

	if f.Fallback != nil {
		bundled, ferr := f.Fallback()
		if ferr == nil {
			if werr := writeAtomic(destPath, bundled); werr != nil {
				f.Recorder.IncFetchOutcome(metrics.FetchFailed)
				return metrics.FetchFailed, werr
			}
			f.Recorder.IncFetchOutcome(metrics.FetchFallback)
			slog.Warn("Using bundled artifact copy", "name", name, "bytes", len(bundled))
			return metrics.FetchFallback, nil
		}
		slog.Warn("Bundled artifact unavailable", "error", ferr)
	}

	f.Recorder.IncFetchOutcome(metrics.FetchFailed)
	return metrics.FetchFailed, werrors.Wrap(err, werrors.CategoryFetch, werrors.SeverityError,
		"no artifact available").WithContext("tag", tag).WithContext("name", name)
}

// download retrieves the remote artifact with the retry policy applied to
// transient failures (network errors and 5xx responses).
func (f *Fetcher) download(ctx context.Context, tag, name string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	url := f.URL(tag, name)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			f.Recorder.IncFetchRetry()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.Policy.Delay(attempt)):
			}
		}

		data, transient, err := f.tryOnce(ctx, client, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !transient || attempt >= f.Policy.MaxRetries {
			return nil, lastErr
		}
		slog.Debug("Retrying artifact download", "url", url, "attempt", attempt+1, "error", err)
	}
}

func (f *Fetcher) tryOnce(ctx context.Context, client *http.Client, url string) (data []byte, transient bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return data, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error %d for %s", resp.StatusCode, url)
	default:
		return nil, false, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
}

// writeAtomic writes data via a sibling temp file and rename.
func writeAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityError, "create artifact directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityError, "create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityError, "write artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityError, "close artifact")
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		os.Remove(tmpName)
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityError, "finalize artifact")
	}
	return nil
}
