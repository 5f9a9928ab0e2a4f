// Package platform opens the dashboard URL in a native-looking window.
//
// Back ends are probed once at startup in a platform-specific priority order
// with fallback: an app-mode Chromium window (no browser chrome), the default
// system browser, and finally a headless mode that only logs the URL. The
// launched process owns its own teardown; this package never babysits it.
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/golang/glog"
)

// Options describes the requested window.
type Options struct {
	Title  string
	Width  int
	Height int
}

// Backend is one way of putting the dashboard in front of the user.
type Backend interface {
	Name() string
	// Available reports whether the back end can work on this machine.
	Available() bool
	// Open shows the URL. It returns once the hand-off is done and must
	// not block on the window's lifetime.
	Open(url string, opts *Options) error
}

// backends returns the probe order for the given GOOS. The headless fallback
// is always last and always available.
func backends(goos string) []Backend {
	switch goos {
	case "darwin", "windows", "linux":
		return []Backend{&ChromeApp{}, &SystemBrowser{}, &Headless{}}
	default:
		return []Backend{&SystemBrowser{}, &Headless{}}
	}
}

// Launch opens the URL with the named back end, or probes the priority order
// when name is empty. A failing back end falls through to the next one.
func Launch(name, url string, opts *Options) error {
	if name != "" {
		for _, b := range backends(runtime.GOOS) {
			if !strings.EqualFold(b.Name(), name) {
				continue
			}
			if !b.Available() {
				return fmt.Errorf("window backend %q is not available on this machine", name)
			}
			return b.Open(url, opts)
		}
		return fmt.Errorf("unknown window backend %q, pick one of: chromeapp, browser, headless", name)
	}

	var lastErr error
	for _, b := range backends(runtime.GOOS) {
		if !b.Available() {
			glog.V(1).Infof("window backend %q not available, trying next\n", b.Name())
			continue
		}
		if err := b.Open(url, opts); err != nil {
			lastErr = err
			glog.Warningf("window backend %q failed: %s\n", b.Name(), err)
			continue
		}
		glog.Infof("using window backend %q\n", b.Name())
		return nil
	}
	return fmt.Errorf("no window backend could open %s, last error: %v", url, lastErr)
}
