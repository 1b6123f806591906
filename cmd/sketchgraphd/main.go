// Command sketchgraphd serves the flowchart-photo conversion pipeline
// over HTTP: upload an image, trigger processing by job id, poll status.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/config"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/job"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/observability"
	"github.com/randalmurphal/sketchgraph/pkg/sketchgraph/vision"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml/json config file")
	flag.Parse()

	cfg := config.New(nil)
	if *configPath != "" {
		loaded, err := config.FromFile(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	jobsDir := cfg.String("jobs_dir", "./jobs")
	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		log.Fatalf("create jobs dir: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("open job store: %v", err)
	}
	defer store.Close()

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		log.Fatalf("configure vision provider: %v", err)
	}

	coord := job.NewCoordinator(jobsDir,
		job.WithStore(store),
		job.WithProvider(provider),
		job.WithLogger(logger),
		job.WithMetrics(observability.NewMetricsRecorder()),
		job.WithSpans(observability.NewSpanManager()),
	)
	defer coord.Close()

	app := fiber.New()

	app.Post("/upload", func(c fiber.Ctx) error {
		file, err := c.FormFile("file")
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "missing file field"})
		}

		jobID := uuid.NewString()
		dir := coord.JobDir(jobID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if err := c.SaveFile(file, filepath.Join(dir, filepath.Base(file.Filename))); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(201).JSON(fiber.Map{"job_id": jobID})
	})

	app.Post("/process/:id", func(c fiber.Ctx) error {
		jobID := c.Params("id")

		status, started, err := coord.Submit(jobID)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if !started {
			return c.JSON(fiber.Map{
				"message": "Job already exists",
				"job_id":  jobID,
				"status":  status,
			})
		}
		return c.JSON(fiber.Map{
			"message": "Processing started",
			"job_id":  jobID,
		})
	})

	app.Get("/status/:id", func(c fiber.Ctx) error {
		jobID := c.Params("id")

		status, err := coord.Status(jobID)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"job_id": jobID, "status": status})
	})

	log.Fatal(app.Listen(cfg.String("listen", ":3000")))
}

// buildStore picks the job store backend: in-memory by default, SQLite
// when the config names a database path.
func buildStore(cfg config.Config) (job.Store, error) {
	if path := cfg.String("store_path", ""); path != "" {
		return job.NewSQLiteStore(path)
	}
	return job.NewMemoryStore(), nil
}

// buildProvider selects the vision backend. The API key comes from the
// environment so it stays out of config files.
func buildProvider(cfg config.Config, logger *slog.Logger) (vision.Provider, error) {
	switch name := cfg.String("vision_provider", "stub"); name {
	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			logger.Warn("GEMINI_API_KEY not set, gemini provider will fail")
		}
		return vision.NewGemini(apiKey,
			vision.WithModel(cfg.String("gemini_model", "gemini-2.5-flash")),
		), nil
	case "stub":
		return vision.Stub{}, nil
	default:
		return nil, &unknownProviderError{name: name}
	}
}

type unknownProviderError struct {
	name string
}

func (e *unknownProviderError) Error() string {
	return "unknown vision provider: " + e.name
}
