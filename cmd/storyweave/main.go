package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vampirenirmal/storyweave/internal/agent"
	"github.com/vampirenirmal/storyweave/internal/config"
	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/pipeline"
	"github.com/vampirenirmal/storyweave/internal/refine"
	"github.com/vampirenirmal/storyweave/internal/storage"
)

const usage = `Usage: storyweave run -stage <stage> [flags]
       storyweave reset -story <id> [flags]

Stages: story, characters, settings, parts, chapters,
        scene-summaries, scene-content, scene-evaluation

Flags for run:
  -stage       stage to run (required)
  -story       story id (required for every stage except story)
  -premise     story premise (story stage)
  -count       batch size for characters/settings (default from config)
  -part        part id (chapters stage)
  -chapter     chapter id (scene stages)
  -iterations  refinement iteration cap, 1-3 (scene-evaluation stage)
  -config      config file path (default: XDG config location)
  -verbose     debug logging
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runCmd(os.Args[2:]))
	case "reset":
		os.Exit(resetCmd(os.Args[2:]))
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	stageName := fs.String("stage", "", "stage to run")
	storyID := fs.String("story", "", "story id")
	premise := fs.String("premise", "", "story premise")
	count := fs.Int("count", 0, "batch size")
	partID := fs.String("part", "", "part id")
	chapterID := fs.String("chapter", "", "chapter id")
	iterations := fs.Int("iterations", 0, "refinement iteration cap")
	configPath := fs.String("config", "", "config file path")
	verbose := fs.Bool("verbose", false, "debug logging")
	fs.Parse(args)

	logger := newLogger(*verbose)

	stage, err := pipeline.ParseStage(*stageName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		return 2
	}
	if stage != pipeline.StageStory && *storyID == "" {
		fmt.Fprintf(os.Stderr, "-story is required for stage %s\n", stage)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		return 1
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		logger.Error("opening storage", "error", err)
		return 1
	}
	defer cleanup()

	client := agent.NewClient(cfg.AI.APIKey,
		agent.WithAPIConfig(cfg.AI.BaseURL, cfg.AI.Model),
		agent.WithTimeout(time.Duration(cfg.AI.Timeout)*time.Second),
		agent.WithMaxTokens(cfg.AI.MaxTokens),
		agent.WithRateLimit(cfg.Pipeline.RateLimit.RequestsPerMinute, cfg.Pipeline.RateLimit.BurstSize),
		agent.WithLogger(logger),
	)

	orch := pipeline.New(store, agent.NewGenerator(client),
		pipeline.WithLimits(cfg.Pipeline),
		pipeline.WithCritic(refine.NewSceneCritic(client)),
		pipeline.WithLogger(logger),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := orch.RunStage(ctx, stage, *storyID, pipeline.Params{
		Premise:       *premise,
		Count:         *count,
		PartID:        *partID,
		ChapterID:     *chapterID,
		MaxIterations: *iterations,
	})
	if err != nil {
		logger.Error("stage failed", "stage", string(stage), "error", err)
		if errors.Is(err, core.ErrMissingDependency) {
			return 3
		}
		return 1
	}

	printResult(stage, result)
	if len(result.Created) == 0 && len(result.Failed) > 0 {
		return 4
	}
	return 0
}

func resetCmd(args []string) int {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	storyID := fs.String("story", "", "story id")
	configPath := fs.String("config", "", "config file path")
	verbose := fs.Bool("verbose", false, "debug logging")
	fs.Parse(args)

	logger := newLogger(*verbose)

	if *storyID == "" {
		fmt.Fprintln(os.Stderr, "-story is required")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		return 1
	}
	store, cleanup, err := openStore(cfg)
	if err != nil {
		logger.Error("opening storage", "error", err)
		return 1
	}
	defer cleanup()

	orch := pipeline.New(store, nil, pipeline.WithLogger(logger))
	if err := orch.ResetStory(context.Background(), *storyID); err != nil {
		logger.Error("reset failed", "story_id", *storyID, "error", err)
		return 1
	}
	fmt.Printf("story %s removed\n", *storyID)
	return 0
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore(cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := storage.OpenSQLite(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return storage.NewFileSystem(cfg.Storage.DataDir), func() {}, nil
	}
}

func printResult(stage pipeline.Stage, result pipeline.StageResult) {
	for _, e := range result.Created {
		fmt.Printf("created %s %s\n", e.EntityType(), e.EntityID())
	}
	for _, f := range result.Failed {
		fmt.Printf("failed unit %d: %s\n", f.UnitIndex, f.Reason)
	}
	if len(result.Created) == 0 && len(result.Failed) == 0 {
		fmt.Printf("stage %s: nothing to do\n", stage)
	}
	if len(result.Created) > 0 {
		summary, _ := json.Marshal(map[string]int{"created": len(result.Created), "failed": len(result.Failed)})
		fmt.Println(string(summary))
	}
}
