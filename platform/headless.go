package platform

import (
	"fmt"

	"github.com/golang/glog"
)

// Headless is the terminal fallback: it prints the dashboard URL and leaves
// opening it to the user. Always available.
type Headless struct{}

func (h *Headless) Name() string { return "headless" }

func (h *Headless) Available() bool { return true }

func (h *Headless) Open(url string, opts *Options) error {
	glog.Infof("no window backend available, open the dashboard manually\n")
	fmt.Printf("Dashboard: %s\n", url)
	return nil
}
