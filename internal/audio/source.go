package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// MaxTrackBytes caps how much of a remote track is buffered.
const MaxTrackBytes = 64 << 20

// open loads the whole stream into memory so the decoder can seek.
func open(ctx context.Context, client *http.Client, location string) (*bytes.Reader, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters.
		return readFile(location)
	}

	switch u.Scheme {
	case "file":
		return readFile(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported track location %q", location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch track: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxTrackBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read track: %w", err)
	}
	if len(data) > MaxTrackBytes {
		return nil, fmt.Errorf("track exceeds %d bytes", MaxTrackBytes)
	}
	return bytes.NewReader(data), nil
}

func readFile(path string) (*bytes.Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track: %w", err)
	}
	return bytes.NewReader(data), nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
