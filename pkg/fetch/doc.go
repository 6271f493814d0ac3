// Package fetch retrieves the gallery page and the wallpapers it links to.
//
// Every request goes through a rate limiter and is retried on transient
// failures. HTTP failures come back as *errors.Error so callers can tell a
// missing image from an overloaded server.
package fetch
