// Package server exposes the dashboard and its JSON API on a loopback HTTP
// port. It doubles as the controller's chart view: every tick the rebuilt
// chart specs are pushed here and handed out to the polling dashboard.
package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"image/png"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sallai/pltapp/chart"
	"github.com/sallai/pltapp/config"
	"github.com/sallai/pltapp/controller"
	"github.com/sallai/pltapp/render"
)

//go:embed assets/index.html
var assets embed.FS

const ipLookupTimeout = 10 * time.Second

// Server holds the gin engine, the latest chart specs and the controller it
// forwards user actions to.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	page   []byte

	mu      sync.RWMutex
	ctrl    *controller.Controller
	freqBW  chart.Spec
	scanner chart.Spec

	httpSrv *http.Server

	// IPLookupURL is swapped out in tests.
	IPLookupURL string
	ipClient    *http.Client
}

// New builds the server for a validated configuration. The controller is
// attached separately because it needs the server as its view.
func New(cfg *config.Config) (*Server, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("unable to parse dashboard page: %w", err)
	}
	var page bytes.Buffer
	if err := tmpl.Execute(&page, map[string]any{"Title": cfg.Window.Title}); err != nil {
		return nil, fmt.Errorf("unable to render dashboard page: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:         cfg,
		engine:      gin.New(),
		page:        page.Bytes(),
		freqBW:      chart.FrequencyBandwidth(nil, cfg),
		scanner:     chart.Scanner(nil, cfg),
		IPLookupURL: "https://api.ipify.org?format=text",
		ipClient:    &http.Client{Timeout: ipLookupTimeout},
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s, nil
}

// SetController attaches the controller user actions are forwarded to.
func (s *Server) SetController(ctrl *controller.Controller) {
	s.mu.Lock()
	s.ctrl = ctrl
	s.mu.Unlock()
}

// Update implements controller.View: it stores the latest chart specs for
// the dashboard to poll.
func (s *Server) Update(freqBW, scanner chart.Spec) error {
	s.mu.Lock()
	s.freqBW = freqBW
	s.scanner = scanner
	s.mu.Unlock()
	return nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.pageHandler)
	s.engine.GET("/healthz", s.healthHandler)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.GET("/charts", s.chartsHandler)
	api.POST("/start", s.startHandler)
	api.POST("/stop", s.stopHandler)
	api.POST("/clear", s.clearHandler)
	api.PUT("/rate", s.rateHandler)
	api.GET("/config", s.configHandler)
	api.GET("/ip", s.ipHandler)
	api.GET("/snapshot.png", s.snapshotHandler)
}

// Engine exposes the router for tests.
func (s *Server) Engine() http.Handler {
	return s.engine
}

func (s *Server) controller() *controller.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctrl
}

func (s *Server) pageHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.page)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) chartsHandler(c *gin.Context) {
	ctrl := s.controller()
	s.mu.RLock()
	freqBW := s.freqBW
	scanner := s.scanner
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{
		"freqBandwidth": freqBW,
		"scanner":       scanner,
		"running":       ctrl.Running(),
		"rate":          ctrl.Rate(),
	})
}

func (s *Server) startHandler(c *gin.Context) {
	ctrl := s.controller()
	ctrl.Start()
	c.JSON(http.StatusOK, gin.H{"running": ctrl.Running()})
}

func (s *Server) stopHandler(c *gin.Context) {
	ctrl := s.controller()
	ctrl.Stop()
	c.JSON(http.StatusOK, gin.H{"running": ctrl.Running()})
}

func (s *Server) clearHandler(c *gin.Context) {
	ctrl := s.controller()
	ctrl.Clear()
	c.JSON(http.StatusOK, gin.H{"running": ctrl.Running()})
}

type rateRequest struct {
	PacketsPerSecond int `json:"packetsPerSecond"`
}

func (s *Server) rateHandler(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctrl := s.controller()
	if err := ctrl.SetRate(req.PacketsPerSecond); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"rate":  ctrl.Rate(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate": ctrl.Rate()})
}

func (s *Server) configHandler(c *gin.Context) {
	cfg := s.cfg
	c.JSON(http.StatusOK, gin.H{
		"rate": gin.H{
			"default": cfg.Rate.Default,
			"min":     cfg.Rate.Min,
			"max":     cfg.Rate.Max,
		},
		"bandMHz":      gin.H{"min": cfg.BandMHz.Min, "max": cfg.BandMHz.Max},
		"powerDBm":     gin.H{"min": cfg.PowerDBm.Min, "max": cfg.PowerDBm.Max},
		"bandwidthMHz": gin.H{"min": cfg.BandwidthMHz.Min, "max": cfg.BandwidthMHz.Max},
		"wifiChannels": cfg.WiFi.Channels,
	})
}

// ipHandler fetches the public IP from an external service. Failures come
// back as a JSON error for the dashboard to display; they never crash the
// process or block a tick.
func (s *Server) ipHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ipLookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.IPLookupURL, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp, err := s.ipClient.Do(req)
	if err != nil {
		glog.Warningf("public IP lookup failed: %s\n", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "lookup failed, check network"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("lookup returned HTTP %d", resp.StatusCode)})
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to read lookup response"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ip": string(bytes.TrimSpace(body))})
}

// snapshotHandler renders the currently buffered batch as a PNG heatmap.
func (s *Server) snapshotHandler(c *gin.Context) {
	measurements := s.controller().Snapshot()
	result, err := render.Heatmap(measurements, &render.Options{
		Width:   640,
		Height:  240,
		AddGrid: true,
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, result.Image); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Listen probes for a free loopback port starting at the configured port,
// falling back to an OS-assigned one when the range is exhausted.
func (s *Server) Listen() (net.Listener, int, error) {
	host := s.cfg.Server.Host
	for port := s.cfg.Server.PortStart; port < s.cfg.Server.PortStart+s.cfg.Server.PortAttempts; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
		if err != nil {
			continue
		}
		glog.Infof("found free port: %d\n", port)
		return l, port, nil
	}

	glog.Warningf("no free port in range %d-%d, falling back to an OS-assigned port\n",
		s.cfg.Server.PortStart, s.cfg.Server.PortStart+s.cfg.Server.PortAttempts-1)
	l, err := net.Listen("tcp", fmt.Sprintf("%s:0", host))
	if err != nil {
		return nil, 0, fmt.Errorf("unable to listen on %s: %w", host, err)
	}
	return l, l.Addr().(*net.TCPAddr).Port, nil
}

// Serve runs the HTTP server on the listener until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.httpSrv = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := s.httpSrv.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests with the context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// URL returns the dashboard address for a bound port.
func (s *Server) URL(port int) string {
	return fmt.Sprintf("http://%s:%d/", s.cfg.Server.Host, port)
}
