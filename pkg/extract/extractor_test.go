package extract

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallscraper/pkg/logger"
)

const testClass = "ResponsiveImage--image"

func openFixture(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open("testdata/gallery.html")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestExtract(t *testing.T) {
	e, err := New(testClass, "-5x9", "", logger.NewNopLogger())
	require.NoError(t, err)

	urls, err := e.Extract(openFixture(t))
	require.NoError(t, err)

	// Five matching elements carry a src; duplicates survive extraction.
	assert.Equal(t, []string{
		"https://cdn.example.com/walls/bahrain.png",
		"https://cdn.example.com/walls/jeddah.png",
		"https://cdn.example.com/walls/melbourne.png",
		"https://cdn.example.com/walls/bahrain.png",
		"/media/imola.png",
	}, urls)
}

func TestExtractResolvesRelative(t *testing.T) {
	e, err := New(testClass, "-5x9", "https://www.example.com/gallery/wallpapers/", nil)
	require.NoError(t, err)

	urls, err := e.Extract(openFixture(t))
	require.NoError(t, err)
	require.Len(t, urls, 5)
	assert.Equal(t, "https://www.example.com/media/imola.png", urls[4])
	assert.Equal(t, "https://cdn.example.com/walls/bahrain.png", urls[0], "absolute URLs are untouched")
}

func TestExtractCountsEveryMatch(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 25; i++ {
		b.WriteString(`<img class="wp" src="https://example.com/same.png">`)
	}
	b.WriteString("</body></html>")

	e, err := New("wp", "", "", nil)
	require.NoError(t, err)

	urls, err := e.Extract(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Len(t, urls, 25)
	assert.Len(t, Dedupe(urls), 1)
}

func TestExtractNoMatches(t *testing.T) {
	e, err := New("missing-class", "-5x9", "", nil)
	require.NoError(t, err)

	urls, err := e.Extract(openFixture(t))
	require.NoError(t, err)
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}

func TestExtractLogsMissingSrc(t *testing.T) {
	tl := logger.NewTestLogger()
	e, err := New(testClass, "-5x9", "", tl)
	require.NoError(t, err)

	_, err = e.Extract(openFixture(t))
	require.NoError(t, err)
	assert.True(t, tl.HasMessage("matching image has no src"))
}

func TestNewInvalidBase(t *testing.T) {
	_, err := New(testClass, "", "://bad", nil)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		marker string
		want   string
	}{
		{"marker present", "https://x/a-5x9.png", "-5x9", "https://x/a.png"},
		{"marker absent", "https://x/a.png", "-5x9", "https://x/a.png"},
		{"marker twice", "https://x/a-5x9/b-5x9.png", "-5x9", "https://x/a/b.png"},
		{"empty marker", "https://x/a-5x9.png", "", "https://x/a-5x9.png"},
		{"empty src", "", "-5x9", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.src, tt.marker)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got, tt.marker), "normalizing twice changes nothing")
		})
	}
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"empty", []string{}, []string{}},
		{"nil", nil, []string{}},
		{"no duplicates", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"duplicates keep first position", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
		{"all same", []string{"x", "x", "x"}, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.input)
			assert.Equal(t, tt.want, got)

			distinct := make(map[string]bool)
			for _, s := range tt.input {
				distinct[s] = true
			}
			assert.Len(t, got, len(distinct))
		})
	}
}
