package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/marchrep/internal/app"
	"github.com/ayusman/marchrep/internal/capture"
	"github.com/ayusman/marchrep/internal/config"
	"github.com/ayusman/marchrep/internal/detector"
	"github.com/ayusman/marchrep/internal/replay"
	"github.com/ayusman/marchrep/internal/server"
	"github.com/ayusman/marchrep/internal/store"
	"github.com/ayusman/marchrep/internal/telemetry"
	"github.com/ayusman/marchrep/internal/tray"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the counter with the HTTP API and live feed",
		RunE:  runServe,
	}

	cmd.Flags().Bool("tray", false, "show the system tray menu")
	cmd.Flags().String("session", "", "start a session with this name immediately")
	cmd.Flags().String("record", "", "append every detected pose to this JSON lines file")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	appCfg := app.Config{
		Store:      st,
		Camera:     newCamera(cfg.Camera),
		Detector:   newDetector(cfg.Detector, logger),
		Metrics:    telemetry.New(),
		Thresholds: cfg.Thresholds,
		Logger:     logger,
	}

	if path, _ := cmd.Flags().GetString("record"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		appCfg.Recorder = replay.NewRecorder(f)
	}

	a := app.New(appCfg)

	hub := server.NewHub(a.Reps, logger)
	a.AddObserver(hub)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if name, _ := cmd.Flags().GetString("session"); name != "" {
		if _, err := a.StartSession(name); err != nil {
			return err
		}
	}

	a.SetEnabled(true)
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	srv := server.New(server.Config{
		StaticDir: findWebDir(),
		Store:     st,
		Sessions:  a,
		Hub:       hub,
		Metrics:   appCfg.Metrics.Handler(),
		Logger:    logger,
	})

	useTray, _ := cmd.Flags().GetBool("tray")
	if !useTray {
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	}

	// The tray must own the main thread; the server runs beside it.
	t := tray.New(a.Reps)
	t.OnToggle(a.SetEnabled)
	t.OnDashboard(func() { openBrowser(dashboardURL(cfg.Server.Addr)) })
	t.OnQuit(stop)
	a.AddObserver(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
		t.Quit()
	}()

	t.Run()
	stop()

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newCamera(cfg config.CameraConfig) capture.Camera {
	c := capture.DefaultConfig()
	c.DeviceID = cfg.DeviceID
	c.FPS = cfg.FPS
	return capture.NewCamera(c)
}

// newDetector builds the configured detector, falling back to the mock
// detector when the MediaPipe service is not installed.
func newDetector(cfg config.DetectorConfig, logger *slog.Logger) detector.Detector {
	if cfg.Kind == config.DetectorMediaPipe {
		dc := detector.DefaultConfig()
		dc.ScriptPath = cfg.ScriptPath
		dc.PythonPath = cfg.PythonPath
		dc.IdleTimeout = cfg.IdleTimeout

		mp, err := detector.NewMediaPipeDetector(dc)
		if err == nil {
			logger.Info("using MediaPipe pose detection")
			return mp
		}
		logger.Warn("MediaPipe not available, using mock detector", "error", err)
	}

	mock := detector.NewMockDetector()
	mock.SetSequence(detector.MarchingSequence())
	return mock
}

func dashboardURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.marchrep/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web"}
	if dir := config.DataDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "web"))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) {
	var name string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		name = "open"
		args = []string{url}
	case "linux":
		name = "xdg-open"
		args = []string{url}
	case "windows":
		name = "cmd"
		args = []string{"/c", "start", url}
	default:
		slog.Warn("cannot open browser", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		slog.Warn("failed to open browser", "error", err)
	}
}
