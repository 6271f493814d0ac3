// Package extract finds wallpaper URLs in a gallery page.
package extract
