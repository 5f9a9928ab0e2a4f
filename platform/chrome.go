package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// chromeCandidates lists Chromium-family binaries per GOOS, in preference
// order. On macOS the bundled binaries are not on PATH, so absolute paths
// are probed too.
var chromeCandidates = map[string][]string{
	"linux": {
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"brave-browser",
		"microsoft-edge",
	},
	"darwin": {
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
	},
	"windows": {
		"chrome",
		"msedge",
	},
}

// ChromeApp opens the URL in a Chromium app-mode window: a plain native
// window without tabs or an address bar, which is as close to a desktop
// shell as a stock browser gets.
type ChromeApp struct {
	// path caches the binary found by Available.
	path string
}

func (c *ChromeApp) Name() string { return "chromeapp" }

func (c *ChromeApp) Available() bool {
	for _, candidate := range chromeCandidates[runtime.GOOS] {
		if candidate[0] == '/' {
			if _, err := os.Stat(candidate); err == nil {
				c.path = candidate
				return true
			}
			continue
		}
		if path, err := exec.LookPath(candidate); err == nil {
			c.path = path
			return true
		}
	}
	return false
}

func (c *ChromeApp) Open(url string, opts *Options) error {
	args := []string{fmt.Sprintf("--app=%s", url)}
	if opts != nil && opts.Width > 0 && opts.Height > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.Width, opts.Height))
	}
	cmd := exec.Command(c.path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("unable to start %q: %w", c.path, err)
	}
	// The window process outlives us on its own; reap it if it exits first.
	go cmd.Wait()
	return nil
}
