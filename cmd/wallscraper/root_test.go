package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGalleryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/gallery/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<img class="ResponsiveImage--image" src="http://%[1]s/img/monaco-5x9.png">
<img class="ResponsiveImage--image" src="http://%[1]s/img/monza-5x9.png">
</body></html>`, r.Host)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "png bytes")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScrapeEndToEnd(t *testing.T) {
	server := newGalleryServer(t)
	dir := filepath.Join(t.TempDir(), "walls") + string(filepath.Separator)

	out, err := execute(t, "--no-color", "--log-level", "disabled", "--page-url", server.URL+"/gallery/", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Directory is good\n")
	assert.Contains(t, out, "Number of Images Downloaded: 2\n")
	assert.FileExists(t, dir+"AlfaRomeo_01.png")
	assert.FileExists(t, dir+"AlfaRomeo_02.png")
}

func TestScrapeBadDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	var out bytes.Buffer
	err := runScrape(context.Background(), rootCmd, []string{file}, &out)
	assert.True(t, errors.Is(err, errQuit))
	assert.Equal(t, "Directory is bad\n", out.String())
}

func TestScrapeEmptyDirectoryArgument(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	t.Cleanup(server.Close)
	t.Setenv("WALLSCRAPER_PAGE_URL", server.URL+"/gallery/")

	var out bytes.Buffer
	err := runScrape(context.Background(), rootCmd, []string{""}, &out)
	assert.True(t, errors.Is(err, errQuit))
	assert.Equal(t, "Directory is bad\n", out.String())
	assert.Zero(t, requests, "no network I/O after a bad directory")
}

func TestTooManyArgs(t *testing.T) {
	_, err := execute(t, "a/", "b/")
	assert.Error(t, err)
}

func TestBuildFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&concurrent, "concurrent", 1, "")
	cmd.Flags().IntVar(&retries, "retries", 0, "")
	require.NoError(t, cmd.Flags().Set("concurrent", "3"))

	flags := buildFlags(cmd, []string{"out/"})
	assert.Equal(t, "out/", flags["output"])
	assert.Equal(t, 3, flags["concurrent"])
	_, ok := flags["retries"]
	assert.False(t, ok, "unset flags do not override config")

	flags = buildFlags(cmd, nil)
	_, ok = flags["output"]
	assert.False(t, ok)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallscraper.yaml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created")
	assert.FileExists(t, path)

	_, err = execute(t, "config", "init", "--config", path)
	assert.Error(t, err, "an existing file is not overwritten")

	out, err = execute(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	out, err = execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "image_class: ResponsiveImage--image")

	configFile = ""
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "wallscraper "+version)
}
