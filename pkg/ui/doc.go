// Package ui prints the progress lines a user sees during a run.
package ui
