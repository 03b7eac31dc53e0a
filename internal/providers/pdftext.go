package providers

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	pdf "github.com/ledongthuc/pdf"
)

// extractText sniffs the payload and extracts plain text. PDFs go through
// ledongthuc/pdf; plain text passes through. Anything else is unsupported.
func extractText(filename string, data []byte) (*ExtractedText, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %s", filename)
	}
	if isPDF(data) {
		return extractPDF(data)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".txt" || ext == ".md" || isProbablyText(data) {
		text := collapseWhitespace(string(data))
		return &ExtractedText{Text: text, Pages: 1, Quality: textQuality(text, 1)}, nil
	}
	return nil, fmt.Errorf("unsupported file type: %s", filename)
}

func extractPDF(data []byte) (*ExtractedText, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}
	pages := r.NumPage()

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("pdf read: %w", err)
	}

	text := collapseWhitespace(string(b))
	return &ExtractedText{
		Text:    text,
		Pages:   pages,
		Quality: textQuality(text, pages),
	}, nil
}

// textQuality scores extracted text between 0 and 1. A scanned PDF without an
// OCR layer yields little or garbled text and scores near zero; a born-digital
// document with a normal amount of readable text per page scores near one.
func textQuality(text string, pages int) float64 {
	if pages < 1 {
		pages = 1
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	letters := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			letters++
		}
	}
	readable := float64(letters) / float64(len([]rune(trimmed)))

	// Around 200 readable characters per page is enough to call a page full.
	perPage := float64(letters) / float64(pages) / 200
	if perPage > 1 {
		perPage = 1
	}
	return readable * perPage
}

func isPDF(b []byte) bool {
	// PDF starts with "%PDF-"
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isProbablyText(b []byte) bool {
	sample := b
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good) >= 0.95*float64(len(sample))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
