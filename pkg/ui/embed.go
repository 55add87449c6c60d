// Package ui provides the embedded ops status page.
//
// The page polls /api/v1/stats and /api/v1/runs. When the server requires an
// API key, open the page as /?key=<API_KEY> and the key is forwarded to
// every request.
package ui

import (
	_ "embed"
)

// StatusHTML is the run history dashboard.
//
//go:embed status.html
var StatusHTML []byte
