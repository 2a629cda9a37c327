package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"aircheck/internal/archive"
	"aircheck/internal/config"
	"aircheck/internal/media"
	"aircheck/internal/pipeline"
	"aircheck/internal/schedule"
)

const version = "1.2.0"

func main() {
	app := cli.NewApp()
	app.Name = "aircheck"
	app.Usage = "download and assemble recurring radio broadcasts from a legacy archive"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "base-url",
			Usage: "base URL of the archive site (prompted when omitted)",
		},
		cli.StringFlag{
			Name:  "output-dir, o",
			Usage: "directory for assembled shows (prompted when omitted)",
		},
		cli.StringFlag{
			Name:  "username, u",
			Usage: "archive username (prompted when omitted)",
		},
		cli.StringFlag{
			Name:  "password, p",
			Usage: "archive password (prompted when omitted)",
		},
		cli.StringFlag{
			Name:  "station-code",
			Usage: "station code prefix for segment filenames (auto-detected when omitted)",
		},
		cli.StringFlag{
			Name:  "start-date, s",
			Usage: "YYYY-MM-DD inclusive lower bound for processed dates",
		},
		cli.StringFlag{
			Name:  "schedules",
			Value: "schedules.yaml",
			Usage: "path to the YAML schedule file",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "aircheck: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := log.New(os.Stderr, "aircheck ", log.LstdFlags|log.Lmsgprefix)

	fmt.Printf("aircheck v%s\n\n", version)

	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := archive.New(cfg.BaseURL, logger)
	if err != nil {
		return err
	}

	if err := client.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	logger.Printf("logged in as %s", cfg.Username)

	code := cfg.StationCode
	if code == "" {
		code, err = resolveStationCode(ctx, client, cfg.BaseURL, logger)
		if err != nil {
			return err
		}
	}
	client.SetStationCode(code)

	occurrences := schedule.Collect(cfg.Rules, cfg.StartDate)
	tasks := pipeline.BuildTasks(occurrences, client.SegmentRequests)
	if len(tasks) == 0 {
		logger.Printf("no broadcasts match the configured schedules")
		return nil
	}

	progress, reporter := newProgress(len(tasks))

	p := pipeline.New(client, media.MP3Verifier{}, media.NewFFmpegConcatenator(), pipeline.Options{
		OutputDir:     cfg.OutputDir,
		PrimeTimeout:  cfg.PrimeTimeout,
		FetchTimeout:  cfg.FetchTimeout,
		OutputCeiling: cfg.OutputCeiling,
		Reporter:      reporter,
	}, logger)
	p.Run(ctx, tasks)

	reporter.Finish("all tasks processed")
	progress.Wait()
	logger.Printf("all tasks processed")
	return nil
}

// resolveConfig merges flags with interactive prompts into the immutable
// run configuration. All prompting happens here; nothing below this layer
// blocks on input.
func resolveConfig(c *cli.Context) (config.Config, error) {
	rawURL := c.String("base-url")
	if rawURL == "" {
		var err error
		rawURL, err = promptLine("Archive base URL: ")
		if err != nil {
			return config.Config{}, err
		}
	}
	baseURL, err := config.NormalizeBaseURL(rawURL)
	if err != nil {
		return config.Config{}, err
	}

	rawDir := c.String("output-dir")
	if rawDir == "" {
		rawDir, err = promptLine("Output directory for shows: ")
		if err != nil {
			return config.Config{}, err
		}
	}
	outputDir, err := config.ResolveOutputDir(rawDir)
	if err != nil {
		return config.Config{}, err
	}

	username := c.String("username")
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return config.Config{}, err
		}
	}

	password := c.String("password")
	if password == "" {
		password, err = promptPassword("Password: ")
		if err != nil {
			return config.Config{}, err
		}
	}

	var startDate time.Time
	if raw := c.String("start-date"); raw != "" {
		startDate, err = config.ParseDate(raw)
		if err != nil {
			return config.Config{}, err
		}
	}

	rules, err := config.LoadRules(c.String("schedules"))
	if err != nil {
		return config.Config{}, err
	}
	if err := schedule.Validate(rules); err != nil {
		return config.Config{}, err
	}

	cfg := config.Config{
		BaseURL:       baseURL,
		OutputDir:     outputDir,
		Username:      username,
		Password:      password,
		StationCode:   c.String("station-code"),
		StartDate:     startDate,
		Rules:         rules,
		PrimeTimeout:  config.DefaultPrimeTimeout,
		FetchTimeout:  config.DefaultFetchTimeout,
		OutputCeiling: config.DefaultOutputCeiling,
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// resolveStationCode auto-detects the station code after login, falling
// back to interactive disambiguation or manual entry.
func resolveStationCode(ctx context.Context, client *archive.Client, baseURL string, logger *log.Logger) (string, error) {
	logger.Printf("no station code provided, attempting auto-detection")

	today := time.Now()
	code, err := client.DiscoverStationCode(ctx, today)
	if err == nil {
		logger.Printf("auto-detected station code %s", code)
		return code, nil
	}

	var ambiguous *archive.AmbiguousStationCodeError
	switch {
	case errors.As(err, &ambiguous):
		return chooseStationCode(ambiguous.Candidates)
	case errors.Is(err, archive.ErrStationCodeUnresolved):
		fmt.Println("Could not auto-detect the station code.")
		fmt.Println("You can find it in your browser at:")
		fmt.Printf("\n  %s\n\n", archive.ListingURL(baseURL, today))
		return promptLine("Station code: ")
	default:
		return "", err
	}
}
