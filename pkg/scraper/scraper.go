package scraper

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wallscraper/internal/downloader"
	"wallscraper/pkg/config"
	"wallscraper/pkg/extract"
	"wallscraper/pkg/fetch"
	"wallscraper/pkg/logger"
	"wallscraper/pkg/manifest"
	"wallscraper/pkg/ratelimit"
	"wallscraper/pkg/retry"
	"wallscraper/pkg/storage"
	"wallscraper/pkg/ui"
)

// Summary describes what a run did
type Summary struct {
	RunID string
	// Found is the number of matching images before deduplication.
	Found int
	// Unique is the number of distinct image URLs.
	Unique int
	// Skipped counts URLs the manifest already had intact files for.
	Skipped int
	// Attempted counts downloads that were started. It is the number printed
	// at the end of a run and includes failures.
	Attempted int
	// Succeeded counts files actually written.
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Scraper fetches the gallery page and downloads every wallpaper on it
type Scraper struct {
	client      Client
	store       *storage.Manager
	extractor   *extract.Extractor
	console     *ui.Console
	config      *config.Config
	logger      logger.Logger
	manifestMgr *manifest.Manager
}

// New creates a Scraper writing into dir, which must already be resolved
func New(cfg *config.Config, dir string, console *ui.Console) (*Scraper, error) {
	log := logger.GetLogger()

	client := fetch.NewClient(cfg.Download.Timeout, cfg.Site.UserAgent, log)
	client.SetHeader("Referer", cfg.Site.PageURL)
	client.SetLimiter(ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize))
	client.SetRetrier(retry.NewRetrier(&retry.Config{
		MaxRetries: cfg.Download.RetryAttempts,
		MinDelay:   cfg.Download.RetryDelay,
		MaxDelay:   cfg.Download.MaxRetryDelay,
		RetryIf:    retry.DefaultRetryIf,
		Logger:     log,
	}))

	return NewWithClient(cfg, dir, client, console, log)
}

// NewWithClient creates a Scraper around an existing client
func NewWithClient(cfg *config.Config, dir string, client Client, console *ui.Console, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if console == nil {
		console = ui.Stdout(cfg.Logging.NoColor)
	}

	base := ""
	if cfg.Site.ResolveRelative {
		base = cfg.Site.PageURL
	}
	extractor, err := extract.New(cfg.Site.ImageClass, cfg.Site.Marker, base, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	s := &Scraper{
		client:    client,
		store:     storage.NewManager(dir, cfg.Output.FilenamePrefix, cfg.Output.Extension, cfg.Output.JoinPath),
		extractor: extractor,
		console:   console,
		config:    cfg,
		logger:    log,
	}

	if cfg.Manifest.Enabled {
		s.manifestMgr = manifest.NewManager(cfg.ManifestPath(dir), log)
	}

	return s, nil
}

// Run fetches the page, extracts and deduplicates image URLs and downloads
// them. A page fetch failure is returned as is; individual download failures
// are reported and counted but never fail the run.
func (s *Scraper) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	log := s.logger.WithField("run_id", summary.RunID)
	site := s.config.Site

	s.console.Step(fmt.Sprintf("Getting HTML data from %s's web page", site.Name))
	body, err := s.client.GetPage(ctx, site.PageURL)
	if err != nil {
		log.WithError(err).ErrorWithFields("Failed to fetch gallery page", map[string]interface{}{
			"url": site.PageURL,
		})
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	s.console.Step(fmt.Sprintf("Scraping %s's web page for images", site.Name))
	urls, err := s.extractor.Extract(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to extract image URLs: %w", err)
	}
	for _, u := range urls {
		s.console.Item("Found Image: " + u)
	}
	summary.Found = len(urls)

	s.console.Step("Removing Duplicate Image URLs")
	unique := extract.Dedupe(urls)
	summary.Unique = len(unique)
	s.console.Plain(fmt.Sprintf("Number of Image URLS Found: %d", len(unique)))

	var m *manifest.Manifest
	if s.manifestMgr != nil {
		m, err = s.manifestMgr.Load(site.PageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
		log.DebugWithFields("Manifest loaded", map[string]interface{}{
			"path":    s.manifestMgr.Path(),
			"entries": m.Len(),
		})
	}

	jobs := s.planJobs(unique, m, summary)

	s.console.Step("Downloading Images")
	pool := downloader.NewWorkerPool(s.config.Download.ConcurrentDownloads, s.client, s.store, log)
	pool.OnResult(func(r downloader.Result) {
		if !r.Started {
			return
		}
		if r.Success {
			s.console.Success("Downloaded Image: " + r.Job.URL)
			if m != nil {
				m.Record(r.Job.URL, manifest.Entry{
					File:   r.Job.Path,
					Index:  r.Job.Index,
					Size:   r.Size,
					Digest: r.Digest,
				})
			}
			return
		}
		s.console.Error(fmt.Sprintf("Error: Failed to download image: %s %v", r.Job.URL, r.Error))
	})

	results := pool.Run(ctx, jobs)
	for _, r := range results {
		if !r.Started {
			continue
		}
		summary.Attempted++
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if m != nil {
		if err := s.manifestMgr.Save(m); err != nil {
			log.WithError(err).Error("Failed to save manifest")
		}
	}

	// The printed number counts attempts, failed ones included.
	s.console.Plain(fmt.Sprintf("Number of Images Downloaded: %d", summary.Attempted))

	summary.Duration = time.Since(start)
	log.InfoWithFields("Run complete", map[string]interface{}{
		"found":     summary.Found,
		"unique":    summary.Unique,
		"skipped":   summary.Skipped,
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"saved":     s.store.GetSavedCount(),
		"output":    s.store.GetOutputDir(),
		"duration":  summary.Duration,
	})
	if summary.Failed > 0 {
		log.WarnWithFields("Some downloads failed", map[string]interface{}{
			"failed":        summary.Failed,
			"files_written": summary.Succeeded,
		})
	}

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run interrupted: %w", err)
	}

	return summary, nil
}

// planJobs assigns a counter value and path to every URL. Without a manifest
// the counter runs from 1 in URL order. With one, intact earlier downloads are
// skipped, known URLs keep their number and new URLs continue after the
// highest recorded number.
func (s *Scraper) planJobs(urls []string, m *manifest.Manifest, summary *Summary) []downloader.Job {
	jobs := make([]downloader.Job, 0, len(urls))

	next := 1
	if m != nil {
		next = m.NextIndex()
	}

	for _, u := range urls {
		index := 0
		if m != nil {
			if m.IsComplete(u) {
				summary.Skipped++
				s.console.Item("Already Downloaded: " + u)
				continue
			}
			if e, ok := m.Lookup(u); ok && e.Index > 0 {
				index = e.Index
			}
		}
		if index == 0 {
			index = next
			next++
		}

		jobs = append(jobs, downloader.Job{
			URL:   u,
			Index: index,
			Path:  s.store.Path(index),
		})
	}

	return jobs
}
