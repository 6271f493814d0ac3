// Package downloader runs wallpaper downloads on a bounded worker pool.
package downloader
