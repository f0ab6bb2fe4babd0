package trialdex

import "errors"

// Client construction and lifecycle errors.
var (
	ErrNoDatabase   = errors.New("trialdex: no database configured")
	ErrNoEmbedder   = errors.New("trialdex: no embedding model available")
	ErrClientClosed = errors.New("trialdex: client is closed")
)
