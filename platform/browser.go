package platform

import (
	"github.com/pkg/browser"
)

// SystemBrowser opens the URL in the user's default browser. It loses the
// app-window look but works wherever a desktop environment exists.
type SystemBrowser struct{}

func (s *SystemBrowser) Name() string { return "browser" }

func (s *SystemBrowser) Available() bool { return true }

func (s *SystemBrowser) Open(url string, opts *Options) error {
	return browser.OpenURL(url)
}
