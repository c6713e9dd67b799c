// Package git reads local clones with go-git to find the pull requests merged
// between two release tags.
package git
