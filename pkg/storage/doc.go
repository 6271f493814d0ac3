// Package storage prepares the target directory and writes wallpapers to it.
//
// Files are named <prefix>_0<n><ext> and written through a temporary file
// that is renamed into place, so a failed download never leaves a partial
// image behind.
package storage
