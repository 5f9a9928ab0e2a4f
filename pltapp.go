// pltapp simulates packet activity in the 2.4-2.5GHz ISM band and shows it
// as two live scatter charts in a local web dashboard, opened in a native
// window when one is available.
package main

import (
	"context"
	"database/sql"
	"flag"
	"image/jpeg"
	"image/png"
	"io/ioutil"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sallai/pltapp/buffer"
	"github.com/sallai/pltapp/config"
	"github.com/sallai/pltapp/controller"
	"github.com/sallai/pltapp/export"
	"github.com/sallai/pltapp/filter"
	"github.com/sallai/pltapp/platform"
	"github.com/sallai/pltapp/render"
	"github.com/sallai/pltapp/sensor"
	"github.com/sallai/pltapp/server"

	// Blind import support for sqlite3 used by the sqlite exporter.
	_ "github.com/mattn/go-sqlite3"
)

const timeFmt = "2006-01-02T15:04:05"

// Flags
var (
	flagConfig     = ""
	flagIdentifier = ""
	flagWindow     = ""
	flagOutput     = ""

	// SQLite
	flagSQLiteFile = "/tmp/pltapp.db"

	// MySQL
	flagMySQLServer       = "127.0.0.1:3306"
	flagMySQLUser         = ""
	flagMySQLPasswordFile = ""
	flagMySQLDBName       = "pltapp"

	// Export filters
	flagExportLowFreq  = 0.0
	flagExportHighFreq = 0.0
	flagExportMinPower = 0.0

	// Snapshot
	flagSnapLowFreq   = 0.0
	flagSnapHighFreq  = 1e12
	flagSnapStartTime = "2000-01-02T15:04:05"
	flagSnapEndTime   = "2100-01-02T15:04:05"
	flagSnapImgPath   = "/tmp/pltapp.png"
	flagSnapImgWidth  = 640
	flagSnapImgHeight = 480
	flagSnapGrid      = true
)

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")

	rootCmd := &cobra.Command{
		Use:   "pltapp",
		Short: "ISM band scanner demo with a local web dashboard",
		Long: `pltapp synthesizes fake 2.4GHz-band radio packets once per second and
renders them as two live scatter charts (frequency vs. bandwidth and a
spectrum scanner view) in a local web dashboard, opened in a native-looking
window when one is available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(true)
		},
	}
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path of the YAML configuration file (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&flagIdentifier, "id", "", "unique identifier of this run (defaults to a random UUID)")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "export mechanism for generated measurements (one of: csv, sqlite, mysql; none when empty)")
	rootCmd.PersistentFlags().StringVar(&flagSQLiteFile, "sqliteFile", flagSQLiteFile, "file path of the sqlite DB file to use")
	rootCmd.PersistentFlags().StringVar(&flagMySQLServer, "mysqlServer", flagMySQLServer, "MySQL TCP server endpoint to connect to (IP/DNS and port)")
	rootCmd.PersistentFlags().StringVar(&flagMySQLUser, "mysqlUser", "", "MySQL DB user")
	rootCmd.PersistentFlags().StringVar(&flagMySQLPasswordFile, "mysqlPasswordFile", "", "path to the file containing the password for the MySQL user")
	rootCmd.PersistentFlags().StringVar(&flagMySQLDBName, "mysqlDBName", flagMySQLDBName, "name of the DB to use")
	rootCmd.PersistentFlags().Float64Var(&flagExportLowFreq, "exportLowFreq", 0, "export only measurements at or above this frequency in MHz (0 disables)")
	rootCmd.PersistentFlags().Float64Var(&flagExportHighFreq, "exportHighFreq", 0, "export only measurements at or below this frequency in MHz (0 disables)")
	rootCmd.PersistentFlags().Float64Var(&flagExportMinPower, "exportMinPower", 0, "export only measurements at or above this power in dBm (0 disables)")
	rootCmd.Flags().StringVar(&flagWindow, "window", "", "window backend to use (one of: chromeapp, browser, headless; probed when empty)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server without opening a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false)
		},
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render a heatmap image from measurements stored in sqlite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return snapshot()
		},
	}
	snapshotCmd.Flags().Float64Var(&flagSnapLowFreq, "lowFreq", flagSnapLowFreq, "select measurements starting with this frequency in MHz")
	snapshotCmd.Flags().Float64Var(&flagSnapHighFreq, "highFreq", flagSnapHighFreq, "select measurements up to this frequency in MHz")
	snapshotCmd.Flags().StringVar(&flagSnapStartTime, "startTime", flagSnapStartTime, "select measurements collected after this time. Format: "+timeFmt)
	snapshotCmd.Flags().StringVar(&flagSnapEndTime, "endTime", flagSnapEndTime, "select measurements collected before this time. Format: "+timeFmt)
	snapshotCmd.Flags().StringVar(&flagSnapImgPath, "imgPath", flagSnapImgPath, "path where the rendered image should be written to (.png or .jpg)")
	snapshotCmd.Flags().IntVar(&flagSnapImgWidth, "imgWidth", flagSnapImgWidth, "width of output image in pixels")
	snapshotCmd.Flags().IntVar(&flagSnapImgHeight, "imgHeight", flagSnapImgHeight, "height of output image in pixels")
	snapshotCmd.Flags().BoolVar(&flagSnapGrid, "grid", flagSnapGrid, "draw labeled axes around the heatmap")

	rootCmd.AddCommand(serveCmd, snapshotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	glog.Flush()
}

// run wires the whole pipeline: generator -> controller -> charts/server,
// with an optional export stream, then blocks until SIGINT/SIGTERM.
func run(openWindow bool) error {
	ctx := context.Background()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		glog.Exitf("invalid configuration: %s", err)
	}
	if flagIdentifier == "" {
		flagIdentifier = uuid.NewString()
	}

	// Exporter setup
	var exporter export.Exporter
	switch strings.ToLower(flagOutput) {
	case "":
		// No export; charts only.
	case "csv":
		exporter = &export.CSV{}
	case "sqlite":
		db, err := sql.Open("sqlite3", flagSQLiteFile)
		if err != nil {
			glog.Exitf("unable to open sqlite DB %q: %s", flagSQLiteFile, err)
		}
		exporter = &export.SQLite{
			DB: db,
		}
	case "mysql":
		pass, err := ioutil.ReadFile(flagMySQLPasswordFile)
		if err != nil {
			glog.Exitf("unable to read MySQL password file %q: %s\n", flagMySQLPasswordFile, err)
		}
		mysqlCfg := mysql.Config{
			User:   flagMySQLUser,
			Passwd: strings.TrimSpace(string(pass)),
			Net:    "tcp",
			Addr:   flagMySQLServer,
			DBName: flagMySQLDBName,
		}
		db, err := sql.Open("mysql", mysqlCfg.FormatDSN())
		if err != nil {
			glog.Exitf("unable to open MySQL DB %q: %s", flagMySQLServer, err)
		}
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		exporter = &export.MySQL{
			DB: db,
		}
	default:
		glog.Exitf("%q is not a supported export method, pick one of: csv, sqlite, mysql", flagOutput)
	}

	// Export measurements, through the filter stage when one is requested.
	var sink chan sensor.Measurement
	if exporter != nil {
		sink = make(chan sensor.Measurement, 1000)
		exportIn := sink
		if filters := exportFilters(); len(filters) > 0 {
			filtered := make(chan sensor.Measurement, 1000)
			go func() {
				if err := filter.Filter(sink, filtered, filters); err != nil {
					glog.Fatal(err)
				}
			}()
			exportIn = filtered
		}
		go func() {
			if err := exporter.Write(ctx, exportIn); err != nil {
				glog.Fatal(err)
			}
		}()
	}

	// UI wiring: the server is the controller's chart view.
	srv, err := server.New(cfg)
	if err != nil {
		glog.Exitf("unable to set up server: %s", err)
	}
	gen := sensor.New(cfg, flagIdentifier, nil)
	buf := buffer.New(cfg.BufferSize)
	ctrl := controller.New(cfg, gen, buf, srv, sink, time.Second)
	srv.SetController(ctrl)

	l, port, err := srv.Listen()
	if err != nil {
		glog.Exitf("unable to find a free port: %s", err)
	}
	go func() {
		if err := srv.Serve(l); err != nil {
			glog.Fatal(err)
		}
	}()
	glog.Infof("dashboard listening on %s\n", srv.URL(port))

	if openWindow {
		if err := platform.Launch(flagWindow, srv.URL(port), &platform.Options{
			Title:  cfg.Window.Title,
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
		}); err != nil {
			// The server keeps running; the dashboard stays reachable.
			glog.Warningf("unable to open a window: %s\n", err)
		}
	}

	// Block until interrupted, then drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Infoln("shutting down")

	ctrl.Close()
	if sink != nil {
		close(sink)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		glog.Warningf("server shutdown: %s\n", err)
	}
	glog.Flush()
	return nil
}

// exportFilters builds the filter chain from the export filter flags.
func exportFilters() []filter.Filterer {
	var filters []filter.Filterer
	if flagExportLowFreq != 0 || flagExportHighFreq != 0 {
		high := flagExportHighFreq
		if high == 0 {
			high = 1e12
		}
		filters = append(filters, &filter.FreqRange{
			LowMHz:  flagExportLowFreq,
			HighMHz: high,
		})
	}
	if flagExportMinPower != 0 {
		filters = append(filters, &filter.MinPower{DBm: flagExportMinPower})
	}
	return filters
}

// snapshot renders a heatmap from previously exported sqlite history.
func snapshot() error {
	startTime, err := time.Parse(timeFmt, flagSnapStartTime)
	if err != nil {
		glog.Exitf("unable to parse startTime (value: %q, format: %q): %s", flagSnapStartTime, timeFmt, err)
	}
	endTime, err := time.Parse(timeFmt, flagSnapEndTime)
	if err != nil {
		glog.Exitf("unable to parse endTime (value: %q, format: %q): %s", flagSnapEndTime, timeFmt, err)
	}

	db, err := sql.Open("sqlite3", flagSQLiteFile)
	if err != nil {
		glog.Exitf("unable to open sqlite DB %q: %s", flagSQLiteFile, err)
	}
	defer db.Close()

	measurements, err := export.History(db, sensor.SourceName, flagSnapLowFreq, flagSnapHighFreq, startTime, endTime)
	if err != nil {
		glog.Exitf("unable to read measurement history: %s", err)
	}
	glog.Infof("rendering %d measurements (%d x %d)\n", len(measurements), flagSnapImgWidth, flagSnapImgHeight)

	result, err := render.Heatmap(measurements, &render.Options{
		Width:   flagSnapImgWidth,
		Height:  flagSnapImgHeight,
		AddGrid: flagSnapGrid,
	})
	if err != nil {
		glog.Exitf("unable to render heatmap: %s", err)
	}

	f, err := os.Create(flagSnapImgPath)
	if err != nil {
		glog.Exitf("unable to create %q: %s", flagSnapImgPath, err)
	}
	defer f.Close()
	switch {
	case strings.HasSuffix(flagSnapImgPath, ".png"):
		err = png.Encode(f, result.Image)
	case strings.HasSuffix(flagSnapImgPath, ".jpg"):
		err = jpeg.Encode(f, result.Image, &jpeg.Options{Quality: jpeg.DefaultQuality})
	default:
		glog.Exitf("unsupported image suffix in %q, pick .png or .jpg", flagSnapImgPath)
	}
	if err != nil {
		glog.Exitf("unable to encode image: %s", err)
	}
	glog.Infof("wrote image to %q\n", flagSnapImgPath)
	return nil
}
