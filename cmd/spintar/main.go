package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/spintar/internal/config"
	"github.com/bamsammich/spintar/internal/engine"
	"github.com/bamsammich/spintar/internal/event"
	"github.com/bamsammich/spintar/internal/filter"
	"github.com/bamsammich/spintar/internal/readahead"
	"github.com/bamsammich/spintar/internal/sink"
	"github.com/bamsammich/spintar/internal/stats"
	"github.com/bamsammich/spintar/internal/ui"
	"github.com/bamsammich/spintar/internal/walk"
)

var version = "dev"

func main() {
	os.Exit(run())
}

type options struct {
	output       string
	order        orderFlag
	readAhead    int
	batchSize    int
	prefetch     sizeFlag
	noDropbehind bool
	bwLimit      sizeFlag
	filterFile   string
	minSize      sizeFlag
	maxSize      sizeFlag
	verbose      bool
	quiet        bool
	progress     bool
	logFile      string
	showVersion  bool
	chain        *filter.Chain
}

func run() int {
	defer sink.CleanupTmpFiles()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(rootCmd.ErrOrStderr(), "spintar: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{
		order:     orderFlag{raw: "content"},
		readAhead: readahead.DefaultDepth,
		prefetch:  sizeFlag{raw: "1M", n: readahead.DefaultPrefetch},
		chain:     filter.NewChain(),
	}

	rootCmd := &cobra.Command{
		Use:   "spintar [flags] [dir...]",
		Short: "Stream a deterministic GNU tar archive of directory trees, ordered for spinning disks",
		Long: `spintar writes every regular file under the given directories (default: the
current directory) as a GNU tar stream. Files are visited in an order that
keeps a rotating disk's head moving forward, several files are opened ahead
of the writer, and headers carry no run-dependent data, so the same tree
always produces the same bytes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "spintar %s\n", version)
				return nil
			}

			cfg, cfgErr := config.Load()
			if cfgErr == nil {
				cfgErr = applyConfigDefaults(cmd, cfg.Defaults, opts)
			}

			closeLog, err := setupLogging(cmd.ErrOrStderr(), opts)
			if err != nil {
				return err
			}
			defer closeLog()

			if cfgErr != nil {
				slog.Warn("failed to load config", "path", config.Path(), "error", cfgErr)
			}
			for _, key := range cfg.Unknown {
				slog.Warn("unknown config key", "path", config.Path(), "key", key)
			}
			if !opts.order.Known() {
				slog.Warn("unknown leaf order, using content", "order", opts.order.raw)
			}

			if err := buildFilter(opts); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return archiveTrees(ctx, cmd.ErrOrStderr(), opts, args)
		},
	}

	f := rootCmd.Flags()
	f.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	f.Var(&opts.order, "leaf-order", "file order within a batch: inode, content or dentry")
	f.StringVarP(&opts.output, "file", "f", "-", "write the archive to PATH (- for standard output)")
	f.IntVar(&opts.readAhead, "readahead", opts.readAhead, "number of files opened ahead of the writer")
	f.IntVar(&opts.batchSize, "batch-size", walk.DefaultBatchSize, "number of files sorted together before archiving")
	f.Var(&opts.prefetch, "prefetch", "bytes of each file to ask the kernel to read ahead (0 for whole file)")
	f.BoolVar(&opts.noDropbehind, "no-dropbehind", false, "keep archived file pages in the page cache")
	f.Var(&opts.bwLimit, "bwlimit", "read bandwidth limit per second (e.g. 100M, 1G)")
	f.Var(&filterFlag{chain: opts.chain}, "exclude", "exclude files matching PATTERN (repeatable)")
	f.Var(&filterFlag{chain: opts.chain, include: true}, "include", "include files matching PATTERN (repeatable)")
	f.StringVar(&opts.filterFile, "filter", "", "read filter rules from FILE")
	f.Var(&opts.minSize, "min-size", "skip files smaller than SIZE (e.g. 1M, 100K)")
	f.Var(&opts.maxSize, "max-size", "skip files larger than SIZE (e.g. 1G, 500M)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "list archived files and log debug detail")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	f.BoolVar(&opts.progress, "progress", false, "show progress on stderr")
	f.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	rootCmd.AddCommand(newDocsCmd())
	return rootCmd
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, opts *options) error {
	changed := cmd.Flags().Changed

	if !changed("leaf-order") && defaults.LeafOrder != nil {
		opts.order.raw = *defaults.LeafOrder
	}
	if !changed("readahead") && defaults.ReadAhead != nil {
		opts.readAhead = *defaults.ReadAhead
	}
	if !changed("prefetch") && defaults.Prefetch != nil {
		if err := opts.prefetch.Set(*defaults.Prefetch); err != nil {
			return fmt.Errorf("prefetch: %w", err)
		}
	}
	if !changed("no-dropbehind") && defaults.Dropbehind != nil {
		opts.noDropbehind = !*defaults.Dropbehind
	}
	if !changed("bwlimit") && defaults.BWLimit != nil {
		if err := opts.bwLimit.Set(*defaults.BWLimit); err != nil {
			return fmt.Errorf("bwlimit: %w", err)
		}
	}
	if !changed("progress") && defaults.Progress != nil {
		opts.progress = *defaults.Progress
	}
	// Config excludes come after CLI rules, so a CLI include still wins.
	for _, pattern := range defaults.Exclude {
		if err := opts.chain.AddExclude(pattern); err != nil {
			return fmt.Errorf("exclude: %w", err)
		}
	}
	return nil
}

// setupLogging installs the default logger: text on stderr, plus JSON at
// debug level when --log is set.
func setupLogging(errW io.Writer, opts *options) (func(), error) {
	logLevel := slog.LevelWarn
	if opts.verbose {
		logLevel = slog.LevelDebug
	} else if !opts.quiet {
		logLevel = slog.LevelInfo
	}
	var handler slog.Handler = slog.NewTextHandler(errW, &slog.HandlerOptions{Level: logLevel})

	closeLog := func() {}
	if opts.logFile != "" {
		lf, err := os.Create(opts.logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closeLog = func() { _ = lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(handler, jsonHandler)
	}
	slog.SetDefault(slog.New(handler))
	return closeLog, nil
}

func buildFilter(opts *options) error {
	if opts.filterFile != "" {
		if err := opts.chain.LoadFile(opts.filterFile); err != nil {
			return fmt.Errorf("load filter file: %w", err)
		}
	}
	opts.chain.SetMinSize(opts.minSize.n)
	opts.chain.SetMaxSize(opts.maxSize.n)
	return nil
}

func archiveTrees(ctx context.Context, errW io.Writer, opts *options, roots []string) error {
	out, err := sink.Open(opts.output)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Abort(); err != nil {
			slog.Warn("discard output", "output", out.Name(), "error", err)
		}
	}()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)
	presenterEvents := (<-chan event.Event)(events)
	if opts.logFile != "" {
		presenterEvents = teeEvents(events)
	}

	isTTY := false
	width := 0
	if f, ok := errW.(*os.File); ok {
		isTTY = ui.IsTTY(f)
		width = ui.TermWidth(f)
	}
	presenter := ui.NewPresenter(ui.Config{
		ErrWriter: errW,
		Stats:     collector,
		IsTTY:     isTTY,
		Quiet:     opts.quiet,
		Verbose:   opts.verbose,
		Progress:  opts.progress,
		Width:     width,
	})

	engineCfg := engine.Config{
		Roots:      roots,
		Order:      opts.order.Order(),
		BatchSize:  opts.batchSize,
		Out:        out,
		ReadAhead:  opts.readAhead,
		Prefetch:   opts.prefetch.n,
		Dropbehind: !opts.noDropbehind,
		BWLimit:    opts.bwLimit.n,
		Events:     events,
		Stats:      collector,
	}
	if !opts.chain.Empty() {
		engineCfg.Filter = opts.chain
	}
	if p := out.Path(); p != "" {
		if abs, err := filepath.Abs(p); err == nil {
			engineCfg.Skip = []string{abs}
		}
	}

	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		if err := presenter.Run(presenterEvents); err != nil {
			slog.Warn("presenter failed", "error", err)
		}
	}()

	result := engine.Run(ctx, engineCfg)
	close(events)
	presenterWg.Wait()

	if result.Err != nil {
		slog.Error("archive failed", "output", out.Name(), "error", result.Err)
		return &exitError{code: 2}
	}
	if err := out.Commit(); err != nil {
		slog.Error("archive failed", "output", out.Name(), "error", err)
		return &exitError{code: 2}
	}

	// Only a committed archive gets a summary.
	if !opts.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(errW, summary)
		}
	}
	slog.Info("archive complete",
		"output", out.Name(),
		"bytes", result.Stats.BytesWritten,
		"blake3", result.Digest,
	)

	snap := result.Stats
	if snap.FilesFailed > 0 && snap.FilesArchived+snap.LinksArchived == 0 {
		return &exitError{code: 1}
	}
	return nil
}

// teeEvents writes every event to the log before forwarding it.
func teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, cap(events))
	go func() {
		defer close(teed)
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
			}
			if ev.Target != "" {
				attrs = append(attrs, slog.String("target", ev.Target))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelDebug, "spintar.event", attrs...)
			teed <- ev
		}
	}()
	return teed
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
