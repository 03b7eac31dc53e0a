package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmulder/clearcat/internal/metrics"
)

// HTTP is the production Provider: JSON clients for the course registry and
// personnel directory, plain HTTP for the file host, and local PDF text
// extraction. A single rate limiter spans all outbound calls.
type HTTP struct {
	registryURL  string
	directoryURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
	log          *slog.Logger
	mc           *metrics.Collector
}

// NewHTTP creates the production provider. registryURL and directoryURL are
// service base URLs without trailing slash.
func NewHTTP(registryURL, directoryURL string, limits Limits, log *slog.Logger, mc *metrics.Collector) *HTTP {
	timeout := limits.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := limits.MinInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &HTTP{
		registryURL:  registryURL,
		directoryURL: directoryURL,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Every(interval), 1),
		log:          log,
		mc:           mc,
	}
}

func (p *HTTP) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (p *HTTP) track(start time.Time) {
	if p.mc != nil {
		p.mc.RecordTiming(metrics.OpProviderCall, time.Since(start))
	}
}

// FetchCourseDetails queries the course registry by code and academic year.
func (p *HTTP) FetchCourseDetails(ctx context.Context, courseCode, academicYear string) (*CourseDetails, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	defer p.track(time.Now())

	u := fmt.Sprintf("%s/courses/%s?year=%s",
		p.registryURL, url.PathEscape(courseCode), url.QueryEscape(academicYear))

	var details CourseDetails
	if err := p.getJSON(ctx, u, &details); err != nil {
		if NotFound(err) {
			return nil, &notFoundError{what: "course", key: courseCode}
		}
		return nil, fmt.Errorf("fetch course %s: %w", courseCode, err)
	}
	return &details, nil
}

// FetchPersonData queries the personnel directory by name.
func (p *HTTP) FetchPersonData(ctx context.Context, name string) (*PersonDetails, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	defer p.track(time.Now())

	u := fmt.Sprintf("%s/persons?name=%s", p.directoryURL, url.QueryEscape(name))

	var details PersonDetails
	if err := p.getJSON(ctx, u, &details); err != nil {
		if NotFound(err) {
			return nil, &notFoundError{what: "person", key: name}
		}
		return nil, fmt.Errorf("fetch person %q: %w", name, err)
	}
	return &details, nil
}

// CheckFileExists issues a HEAD request against the file URL.
func (p *HTTP) CheckFileExists(ctx context.Context, fileURL string) (bool, error) {
	if err := p.wait(ctx); err != nil {
		return false, err
	}
	defer p.track(time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("head %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	default:
		return false, fmt.Errorf("head %s: unexpected status %d", fileURL, resp.StatusCode)
	}
}

// DownloadFile fetches the file contents from the file host.
func (p *HTTP) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	defer p.track(time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", fileURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// ExtractText extracts text locally; no outbound call, so no rate limiting.
func (p *HTTP) ExtractText(_ context.Context, filename string, data []byte) (*ExtractedText, error) {
	defer p.track(time.Now())
	return extractText(filename, data)
}

func (p *HTTP) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &notFoundError{what: "resource", key: u}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
