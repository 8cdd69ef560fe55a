// Command mediabus-host runs the MediaBus host process: it binds a
// TLS listener on the LAN, advertises itself over mDNS, and serves the
// pairing/session/file-transfer REST surface to browsers that pair
// with it.
//
// Usage:
//
//	mediabus-host [flags]
//
// Flags:
//
//	-data-dir string    Directory for persisted state (default "./mediabus-data")
//	-shared string       Shared folder path exposed to paired devices
//	-config string       Optional mediabus.yaml bootstrap file
//	-log-level string    Log level: debug, info, warn, error (default "info")
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mediabus/mediabus-host/pkg/assets"
	"github.com/mediabus/mediabus-host/pkg/devicestore"
	"github.com/mediabus/mediabus-host/pkg/httpsurface"
	"github.com/mediabus/mediabus-host/pkg/mblog"
	"github.com/mediabus/mediabus-host/pkg/mdns"
	"github.com/mediabus/mediabus-host/pkg/runtime"
	"github.com/mediabus/mediabus-host/pkg/supervisor"
	"github.com/mediabus/mediabus-host/pkg/tlsidentity"
	"github.com/mediabus/mediabus-host/pkg/token"
	"gopkg.in/yaml.v3"
)

// bootstrapConfig is the optional mediabus.yaml file: only the handful
// of settings that make sense to fix before the host has ever started,
// since everything else (shared folder permissions, hidden files) is
// owned by Runtime/DeviceStore once the process is up.
type bootstrapConfig struct {
	DataDir      string `yaml:"dataDir"`
	SharedFolder string `yaml:"sharedFolder"`
	LogLevel     string `yaml:"logLevel"`
}

var (
	flagDataDir     = flag.String("data-dir", "./mediabus-data", "Directory for persisted state")
	flagShared      = flag.String("shared", "", "Shared folder path exposed to paired devices")
	flagConfig      = flag.String("config", "", "Optional mediabus.yaml bootstrap file")
	flagLogLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flagShowVersion = flag.Bool("version", false, "Show version information")
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *flagShowVersion {
		fmt.Printf("mediabus-host %s\n", version)
		return 0
	}

	cfg := bootstrapConfig{DataDir: *flagDataDir, SharedFolder: *flagShared, LogLevel: *flagLogLevel}
	if *flagConfig != "" {
		if err := loadBootstrapConfig(*flagConfig, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read config %q: %v\n", *flagConfig, err)
			return 1
		}
	}

	baseLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel(cfg.LogLevel)}))
	log := mblog.New(baseLogger, "mediabus-host")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create data directory %q: %v\n", cfg.DataDir, err)
		return 1
	}

	store, err := devicestore.NewStore(filepath.Join(cfg.DataDir, "mediabus.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open device store: %v\n", err)
		return 1
	}
	defer store.Close()

	if cfg.SharedFolder != "" {
		settings, err := store.LoadSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load settings: %v\n", err)
			return 1
		}
		if settings.SharedFolderPath == "" {
			settings.SharedFolderPath = cfg.SharedFolder
			if err := store.SaveSettings(settings); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to save settings: %v\n", err)
				return 1
			}
		}
	}

	secret, err := store.LoadOrCreateSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load signing secret: %v\n", err)
		return 1
	}
	codec := token.NewCodec(secret)

	auditPath := filepath.Join(cfg.DataDir, "audit.cbor.log")
	fileAudit, err := mblog.NewFileEventLogger(auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open audit log %q: %v\n", auditPath, err)
		return 1
	}
	defer fileAudit.Close()
	audit := mblog.NewMultiEventLogger(fileAudit, mblog.NewSlogEventLogger(baseLogger))

	rt, err := runtime.NewRuntime(runtime.SystemClock(), codec, store, log, audit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start runtime: %v\n", err)
		return 1
	}

	assetHandler, err := assets.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load embedded assets: %v\n", err)
		return 1
	}

	tlsStore, err := tlsidentity.NewStore(filepath.Join(cfg.DataDir, "tls"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open TLS identity store: %v\n", err)
		return 1
	}

	advertiser := &mdns.Advertiser{}

	newServer := func() supervisor.HTTPServer {
		return httpsurface.New(rt, assetHandler, "mediabus.local", supervisor.Port, log)
	}

	sup := supervisor.New(tlsStore, advertiser, newServer, rt, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rt.StartPresenceLoop(ctx)
	go sup.Run(ctx)

	log.Info("mediabus-host starting", "dataDir", cfg.DataDir, "port", supervisor.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig.String())

	cancel()
	return 0
}

func loadBootstrapConfig(path string, cfg *bootstrapConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
