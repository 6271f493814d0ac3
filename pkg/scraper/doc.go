// Package scraper runs one wallpaper scrape from start to finish.
//
// A run fetches the gallery page, extracts the image URLs, removes
// duplicates and downloads each image to <dir><prefix>_0<n><ext>. Progress
// is printed to the console line by line:
//
//	Getting HTML data from Alfa Romeo's web page
//	Scraping Alfa Romeo's web page for images
//	Found Image: https://.../bahrain.png
//	Removing Duplicate Image URLs
//	Number of Image URLS Found: 1
//	Downloading Images
//	Downloaded Image: https://.../bahrain.png
//	Number of Images Downloaded: 1
//
// The final number counts download attempts, so failed downloads are
// included; Summary.Succeeded holds the number of files written.
package scraper
