package imagery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher downloads satellite thumbnails for a bounding box from the
// configured tile endpoint.
type Fetcher struct {
	Endpoint   string
	Dim        int
	StartDate  string
	EndDate    string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher; imagery downloads get a long timeout
// because tile rendering is slow.
func NewFetcher(endpoint string, dim int, startDate, endDate string, timeout time.Duration) *Fetcher {
	if dim <= 0 {
		dim = 512
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{
		Endpoint:   endpoint,
		Dim:        dim,
		StartDate:  startDate,
		EndDate:    endDate,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the thumbnail image bytes for the box.
func (f *Fetcher) Fetch(ctx context.Context, box BBox) ([]byte, error) {
	if f.Endpoint == "" {
		return nil, fmt.Errorf("no imagery endpoint configured")
	}
	q := url.Values{}
	q.Set("bbox", fmt.Sprintf("%f,%f,%f,%f", box.MinLon, box.MinLat, box.MaxLon, box.MaxLat))
	q.Set("dim", fmt.Sprintf("%d", f.Dim))
	q.Set("start", f.StartDate)
	q.Set("end", f.EndDate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("thumbnail endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	return data, nil
}
