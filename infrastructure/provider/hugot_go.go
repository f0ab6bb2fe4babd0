//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

// newHugotSession uses the pure Go backend; build with -tags ORT to run on
// ONNX Runtime instead.
func newHugotSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
