// Package providers holds the external data sources the enrichment pipeline
// draws from: the course registry, the personnel directory, the file host, and
// PDF text extraction. Each source is a capability on the Provider interface;
// implementations share a rate limiter so outbound traffic stays bounded
// regardless of enrichment concurrency.
package providers

import (
	"context"
	"time"
)

// CourseDetails is what the course registry knows about one course edition.
type CourseDetails struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Faculty      string `json:"faculty"`
	StudentCount int    `json:"student_count"`
	AcademicYear string `json:"academic_year"`
}

// PersonDetails is a personnel-directory record for one staff member.
type PersonDetails struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

// ExtractedText is the result of pulling text out of a document.
type ExtractedText struct {
	Text  string
	Pages int
	// Quality is a 0..1 score of how much usable text the document yielded.
	// Scanned PDFs without an OCR layer score near zero.
	Quality float64
}

// Provider is the set of external lookups enrichment can perform. Every call
// honors the context and returns an error rather than blocking indefinitely.
type Provider interface {
	// FetchCourseDetails looks up a course by code for an academic year.
	FetchCourseDetails(ctx context.Context, courseCode, academicYear string) (*CourseDetails, error)
	// FetchPersonData looks up a staff member by name.
	FetchPersonData(ctx context.Context, name string) (*PersonDetails, error)
	// CheckFileExists reports whether the file behind the URL is reachable.
	CheckFileExists(ctx context.Context, fileURL string) (bool, error)
	// DownloadFile fetches the file contents.
	DownloadFile(ctx context.Context, fileURL string) ([]byte, error)
	// ExtractText pulls plain text out of a downloaded document.
	ExtractText(ctx context.Context, filename string, data []byte) (*ExtractedText, error)
}

// notFoundError marks a registry or directory lookup with no match. A normal
// outcome, not a provider failure.
type notFoundError struct {
	what string
	key  string
}

func (e *notFoundError) Error() string {
	return e.what + " not found: " + e.key
}

// NotFound reports whether err is a no-match lookup result.
func NotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

// Limits configures outbound behavior shared by all HTTP capabilities.
type Limits struct {
	// RequestTimeout bounds each outbound request.
	RequestTimeout time.Duration
	// MinInterval is the minimum spacing between outbound requests.
	MinInterval time.Duration
}
