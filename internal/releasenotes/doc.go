// Package releasenotes renders release notes for a tag from the pull requests
// merged since the previous release and publishes them to the GitHub release.
//
// Notes are assembled by parsers. Each parser owns one markdown heading and
// collects the content found under that heading in every pull request body.
package releasenotes
