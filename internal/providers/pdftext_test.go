package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextQuality(t *testing.T) {
	t.Run("empty text scores zero", func(t *testing.T) {
		assert.Zero(t, textQuality("", 10))
		assert.Zero(t, textQuality("   ", 3))
	})

	t.Run("full readable page scores high", func(t *testing.T) {
		text := strings.Repeat("Inleiding tot auteursrecht in het onderwijs. ", 10)
		q := textQuality(text, 1)
		assert.Greater(t, q, 0.9)
	})

	t.Run("sparse text over many pages scores low", func(t *testing.T) {
		// Looks like a scanned document where only the cover yielded text.
		q := textQuality("Hoofdstuk 1", 40)
		assert.Less(t, q, 0.05)
	})

	t.Run("garbled extraction scores lower than clean text", func(t *testing.T) {
		clean := strings.Repeat("Over hergebruik van leermateriaal. ", 8)
		garbled := strings.Repeat("��#@!%� ab ", 28)
		assert.Greater(t, textQuality(clean, 1), textQuality(garbled, 1))
	})
}

func TestExtractTextPlain(t *testing.T) {
	res, err := extractText("reader.txt", []byte("Syllabus  week 1\n\nCopyright   notice"))
	require.NoError(t, err)
	assert.Equal(t, "Syllabus week 1 Copyright notice", res.Text)
	assert.Equal(t, 1, res.Pages)
	assert.Greater(t, res.Quality, 0.0)
}

func TestExtractTextRejectsUnknownBinary(t *testing.T) {
	_, err := extractText("slides.bin", []byte{0x00, 0x01, 0x02, 0x03})
	require.Error(t, err)

	_, err = extractText("empty.pdf", nil)
	require.Error(t, err)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF([]byte("%PDF-1.7 rest")))
	assert.False(t, isPDF([]byte("PK\x03\x04")))
	assert.False(t, isPDF([]byte("%PD")))
}
