package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/nao1215/sitemapcrawl/internal/config"
	"github.com/nao1215/sitemapcrawl/internal/crawler"
	"github.com/nao1215/sitemapcrawl/internal/database"
	"github.com/nao1215/sitemapcrawl/internal/fetch"
	"github.com/nao1215/sitemapcrawl/internal/log"
	"github.com/nao1215/sitemapcrawl/internal/model"
	"github.com/nao1215/sitemapcrawl/internal/pipeline"
	"github.com/nao1215/sitemapcrawl/internal/report"
	"github.com/spf13/cobra"
)

// errInterrupted is returned when the run was stopped by a signal.
// Collected URLs have been written at that point.
var errInterrupted = errors.New("interrupted: partial results were written")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Collect the URLs announced by a list of sitemaps",
		Long: `Crawl reads root sitemap URLs from the input file and follows nested
sitemap indexes breadth first. The sorted, deduplicated page URLs are
written to the output file, or to stdout.

Input lines that do not look like sitemap URLs (ending in .xml or
.xml.gz, or mentioning "sitemap") are ignored, as are blank lines and
lines starting with #.

A sitemap that cannot be fetched or parsed only loses its own subtree;
the run still succeeds with whatever was collected. Ctrl-C stops the
crawl and writes the URLs collected so far.

Examples:
  # Crawl and write URLs to a file
  sitemapcrawl crawl -i sitemaps.txt -o urls.txt

  # Shallow, small crawl with more workers
  sitemapcrawl crawl -i sitemaps.txt --max-depth 1 --max-urls 500 -t 32

  # Also use the Sitemap lines of each host's robots.txt
  sitemapcrawl crawl -i sitemaps.txt --robots

  # JSON summary on stderr, URLs on stdout
  sitemapcrawl crawl -i sitemaps.txt --summary-format json > urls.txt

Configuration file (.sitemapcrawl) example:
  sites:
    www.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 2`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Input and output
	cmd.Flags().StringP("input", "i", "",
		"File with one root sitemap URL per line (required)")
	cmd.Flags().StringP("output", "o", "",
		"Write collected URLs to this file (default: stdout)")

	// Crawl limits
	cmd.Flags().Int("max-depth", config.DefaultMaxDepth,
		"Deepest sitemap nesting level to fetch (0 = root sitemaps only)")
	cmd.Flags().Int("max-urls", config.DefaultMaxURLs,
		"Maximum number of URLs to collect")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Delay before every request, retries included")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Attempts per sitemap")
	cmd.Flags().IntP("threads", "t", config.DefaultWorkers,
		"Number of concurrent requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest sitemap accepted in bytes, after decompression")

	// Requests
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g. 127.0.0.1:9050)")
	cmd.Flags().Bool("robots", false,
		"Add the Sitemap entries of each seed host's robots.txt as root sitemaps")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitemapcrawl in current or home directory)")

	// Reporting
	cmd.Flags().String("summary-format", config.DefaultSummaryFormat,
		"Summary format on stderr: text, json or markdown")
	cmd.Flags().Bool("progress", true,
		"Show a progress bar when stderr is a terminal")
	cmd.Flags().String("log-file", "",
		"Also write JSON logs to this file, rotated by size")

	// Archive
	cmd.Flags().Bool("no-db", false,
		"Do not archive this run")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run archive")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog := setupLogger(cfg, cmd.ErrOrStderr())
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.InputFile, err = flags.GetString("input"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
		return nil, err
	}
	if cfg.MaxURLs, err = flags.GetInt("max-urls"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("threads"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Robots, err = flags.GetBool("robots"); err != nil {
		return nil, err
	}
	if cfg.SummaryFormat, err = flags.GetString("summary-format"); err != nil {
		return nil, err
	}
	if cfg.Progress, err = flags.GetBool("progress"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs loads the per-host settings. A missing file is only an
// error when the user named it explicitly.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	sites, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return sites, nil
}

// setupLogger creates the run logger. With a log file, JSON records are
// also written there; the returned func closes it.
func setupLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func()) {
	if cfg.LogFile == "" {
		return log.NewSecureLogger(stderr, cfg.Verbose), func() {}
	}

	file := log.NewRotatingFile(cfg.LogFile)
	return log.NewTeeLogger(stderr, file, cfg.Verbose), func() {
		_ = file.Close()
	}
}

// runCrawl executes one crawl run.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	fetcher, err := fetch.NewHTTPFetcher(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithProxy(cfg.ProxyAddress),
		fetch.WithSiteConfigs(cfg.SiteConfigs),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	outputName := cfg.OutputFile
	if outputName == "" {
		outputName = "stdout"
	}
	summary, err := report.NewSummaryWriter(cfg.SummaryFormat, stderr, outputName, getVersion())
	if err != nil {
		return err
	}

	schedOpts := []crawler.Option{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxURLs(cfg.MaxURLs),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithRetries(cfg.Retries),
		crawler.WithDelay(cfg.Delay),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithDepthLimit(cfg.DepthLimitFor),
		crawler.WithLogger(logger),
	}

	var progress *progressObserver
	if cfg.Progress && !cfg.Verbose && stderrIsTerminal() {
		progress = newProgressObserver(stderr)
		schedOpts = append(schedOpts, crawler.WithObserver(progress))
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewSeedStep(cfg.InputFile))
	if cfg.Robots {
		p.AddStep(pipeline.NewRobotsStep(fetcher, logger))
	}
	p.AddStep(pipeline.NewCrawlStep(crawler.NewScheduler(fetcher, schedOpts...), runSettings(cfg)))
	if progress != nil {
		p.AddStep(pipeline.NewFinalFuncStep("progress", func(context.Context, *model.RunReport) error {
			progress.Finish()
			return nil
		}))
	}
	p.AddSteps(
		pipeline.NewOutputStep(cfg.OutputFile, stdout),
		pipeline.NewSummaryStep(summary),
	)

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		p.AddStep(pipeline.NewArchiveStep(db, logger))
	}

	rep := model.NewRunReport(uuid.NewString())
	logger.Debug("starting crawl",
		"run", rep.ID,
		"input", cfg.InputFile,
		"maxDepth", cfg.MaxDepth,
		"maxURLs", cfg.MaxURLs,
		"threads", cfg.Workers,
	)

	err = p.Execute(ctx, rep)
	switch {
	case errors.Is(err, context.Canceled):
		return errInterrupted
	case err != nil:
		return err
	case rep.Cancelled:
		return errInterrupted
	}
	return nil
}

// runSettings records the limits of a run in its report.
func runSettings(cfg *config.Config) model.RunSettings {
	return model.RunSettings{
		MaxDepth: cfg.MaxDepth,
		MaxURLs:  cfg.MaxURLs,
		Timeout:  cfg.Timeout,
		Delay:    cfg.Delay,
		Retries:  cfg.Retries,
		Workers:  cfg.Workers,
	}
}
