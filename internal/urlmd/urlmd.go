// Package urlmd defines the URL-to-Markdown capability named in spec §6.
// No other package imports it; the commit pipeline does not call Fetcher.
package urlmd

import (
	gikerrors "gik/internal/errors"
)

// Fetcher converts a URL's content to Markdown text.
type Fetcher interface {
	FetchMarkdown(url string) (string, error)
}

// Stub is the capability's only implementation today: it always refuses,
// naming the url pending-source path as reserved for a future pipeline.
type Stub struct{}

// NewStub returns a Fetcher that always returns UnsupportedSourceKind.
func NewStub() *Stub { return &Stub{} }

func (Stub) FetchMarkdown(url string) (string, error) {
	return "", gikerrors.Newf(gikerrors.UnsupportedSourceKind, "url source %q is not yet supported", url).
		WithNextAction("add the page content as a file or docs source instead")
}
