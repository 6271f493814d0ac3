// Package manifest remembers which wallpapers were already downloaded.
//
// The manifest is a JSON file, by default inside the target directory, that
// maps each image URL to the file it was saved as together with its size and
// blake2b-256 digest. A rerun skips URLs whose file is still intact and
// numbers new files after the highest recorded counter.
package manifest
