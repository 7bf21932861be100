package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/store"
)

// config collects every environment tunable of the service. Classifier
// defaults mirror gesture.DefaultConfig so an empty environment behaves
// like the stock tuning.
type config struct {
	Addr           string        `envconfig:"MUDRA_ADDR" default:":8080"`
	DBPath         string        `envconfig:"MUDRA_DB_PATH"`
	StaticDir      string        `envconfig:"MUDRA_STATIC_DIR"`
	Debug          bool          `envconfig:"MUDRA_DEBUG"`
	ReplayFile     string        `envconfig:"MUDRA_REPLAY_FILE"`
	ReplayLoop     bool          `envconfig:"MUDRA_REPLAY_LOOP" default:"true"`
	SampleInterval time.Duration `envconfig:"MUDRA_SAMPLE_INTERVAL" default:"10ms"`

	NullRejection      bool    `envconfig:"MUDRA_NULL_REJECTION" default:"true"`
	NullRejectionCoeff float64 `envconfig:"MUDRA_NULL_REJECTION_COEFF" default:"3"`
	TrimTrainingData   bool    `envconfig:"MUDRA_TRIM_TRAINING_DATA" default:"true"`
	WarpingRadius      float64 `envconfig:"MUDRA_WARPING_RADIUS" default:"0.2"`
}

func main() {
	fmt.Println("Mudra - Temporal Gesture Recognition")

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.Debug)
	defer logger.Sync()

	// Initialize the store
	dbPath := cfg.DBPath
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}

		dbDir := filepath.Join(homeDir, ".mudra")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "mudra.db")
	}

	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// An optional replay file stands in for live sensor input
	var src source.Source
	if cfg.ReplayFile != "" {
		src, err = replaySource(cfg.ReplayFile, cfg.ReplayLoop)
		if err != nil {
			log.Fatalf("Failed to load replay file: %v", err)
		}
	}

	application := app.New(app.Config{
		Store:          st,
		Source:         src,
		Classifier:     classifierConfig(cfg),
		SampleInterval: cfg.SampleInterval,
		Logger:         logger,
	})

	if src != nil {
		if err := application.Start(); err != nil {
			log.Fatalf("Failed to start observation loop: %v", err)
		}
		defer application.Stop()
	} else {
		logger.Infof("no observation source configured, classification is available over the API only")
	}

	// Find web directory
	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       application,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting server on %s\n", cfg.Addr)
	if err := srv.Serve(ctx, cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}

// classifierConfig overlays the environment tunables on the stock tuning.
// A warping radius of 0 disables the band constraint entirely.
func classifierConfig(cfg config) gesture.Config {
	c := gesture.DefaultConfig()
	c.NullRejectionEnabled = cfg.NullRejection
	c.NullRejectionCoeff = cfg.NullRejectionCoeff
	c.TrimTrainingData = cfg.TrimTrainingData
	c.WarpingRadius = cfg.WarpingRadius
	c.ConstrainWarpingPath = cfg.WarpingRadius > 0
	return c
}

// replaySource builds a replay over every sample in the dataset file,
// concatenated in storage order.
func replaySource(path string, loop bool) (source.Source, error) {
	ds, err := gesture.LoadFile(path)
	if err != nil {
		return nil, err
	}

	var series gesture.TimeSeries
	for _, sample := range ds.Samples() {
		series = append(series, sample.Series...)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("replay file %s holds no observations", path)
	}
	return source.NewReplay(series, loop), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
