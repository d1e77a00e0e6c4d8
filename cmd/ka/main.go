// cmd/ka/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Melonai/ka/client"
	"github.com/Melonai/ka/internal/config"
	"github.com/Melonai/ka/internal/logging"
	"github.com/Melonai/ka/internal/parcel"
	"github.com/Melonai/ka/internal/repository"
	"github.com/Melonai/ka/internal/watch"
	shared "github.com/Melonai/ka/shared/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	repo       string
	configPath string
	remote     string
	logLevel   string

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	var rootCmd = &cobra.Command{
		Use:   "ka",
		Short: "ka keeps a linear version history of a directory tree",
		Long: `ka records every file of a directory tree as a series of byte level
edit scripts and can move the whole tree to any recorded version.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.repo != "" {
				cfg.Repository.Path = opts.repo
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}

			logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			opts.cfg, opts.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				opts.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.repo, "repo", "C", "", "Repository root (default: nearest ancestor with a ka repository)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&opts.remote, "remote", "", "Address of a ka daemon to run history commands against")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	var createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a repository, recording the files already present",
		Long:  `Create deletes any earlier history in the directory and records its current files as version 1.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parcel.Open(opts.cfg, opts.logger, false)
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.Repository.Create(now())
			if err != nil {
				return fmt.Errorf("creating repository: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created ka repository in %s\n", p.Root)
			printUpdate(cmd.OutOrStdout(), result)
			return nil
		},
	}

	var updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Record the working tree as a new version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			result, err := b.Update(now())
			if err != nil {
				return fmt.Errorf("updating: %w", err)
			}
			printUpdate(cmd.OutOrStdout(), result)
			return nil
		},
	}

	var shiftCmd = &cobra.Command{
		Use:   "shift <cursor>",
		Short: "Move the working tree to a recorded version",
		Long: `Shift rewrites only the files recorded between the current and the target
version. Files that were never recorded are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cursor, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid cursor %q: %w", args[0], err)
			}

			b, err := opts.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			result, err := b.Shift(cursor)
			if err != nil {
				return fmt.Errorf("shifting: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Shifted from %d to %d\n", result.OldCursor, result.Cursor)
			for _, path := range result.Touched {
				fmt.Fprintf(out, "\t%s\n", path)
			}
			return nil
		},
	}

	var showFiles bool
	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "List recorded versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			log, err := b.History()
			if err != nil {
				return fmt.Errorf("reading log: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(log.Changes) == 0 {
				fmt.Fprintln(out, "No versions recorded")
				return nil
			}

			current := color.New(color.FgGreen, color.Bold)
			for i := len(log.Changes) - 1; i >= 0; i-- {
				change := log.Changes[i]
				cursor := uint64(i + 1)

				marker := " "
				if cursor == log.Cursor {
					marker = current.Sprint("*")
				}
				fmt.Fprintf(out, "%s %4d  %s  %d file(s)\n",
					marker,
					cursor,
					time.Unix(int64(change.Timestamp), 0).Format(time.RFC3339),
					len(change.AffectedFiles),
				)
				if showFiles {
					for _, path := range change.AffectedFiles {
						fmt.Fprintf(out, "\t%s\n", path)
					}
				}
			}
			if log.Cursor == 0 || log.Cursor > uint64(len(log.Changes)) {
				fmt.Fprintf(out, "Working tree is at cursor %d\n", log.Cursor)
			}
			return nil
		},
	}
	logCmd.Flags().BoolVarP(&showFiles, "files", "f", false, "List the files of each version")

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show what the next update would record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			entries, err := b.Status()
			if err != nil {
				return fmt.Errorf("getting status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	var showCursor int64
	var showCmd = &cobra.Command{
		Use:   "show <path>",
		Short: "Print a file as recorded at a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			rel, err := b.Resolve(args[0])
			if err != nil {
				return err
			}

			var cursor *uint64
			if showCursor >= 0 {
				c := uint64(showCursor)
				cursor = &c
			}

			version, err := b.File(rel, cursor)
			if err != nil {
				return fmt.Errorf("showing %s: %w", rel, err)
			}
			if version.Deleted {
				return fmt.Errorf("%s is deleted at cursor %d", rel, version.Cursor)
			}
			_, err = cmd.OutOrStdout().Write(version.Content)
			return err
		},
	}
	showCmd.Flags().Int64Var(&showCursor, "cursor", -1, "Version to show (default: current cursor)")

	var diffCmd = &cobra.Command{
		Use:   "diff [paths...]",
		Short: "Show changes between the current version and the working tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			var paths []string
			if len(args) == 0 {
				entries, err := b.Status()
				if err != nil {
					return fmt.Errorf("getting status: %w", err)
				}
				for _, e := range entries {
					paths = append(paths, e.Path)
				}
			} else {
				for _, arg := range args {
					rel, err := b.Resolve(arg)
					if err != nil {
						return err
					}
					paths = append(paths, rel)
				}
			}

			for _, path := range paths {
				d, err := b.Diff(path)
				if err != nil {
					return fmt.Errorf("showing diff for %s: %w", path, err)
				}
				printDiff(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Record a version whenever the working tree settles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parcel.Open(opts.cfg, opts.logger, true)
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			w, err := watch.New(p.Root, p.Repository.Locations().MetaDir, opts.cfg.Watch.Debounce, func() error {
				result, err := p.Repository.Update(now())
				if err != nil {
					return err
				}
				if len(result.AffectedFiles) > 0 {
					printUpdate(out, result)
				}
				return nil
			}, opts.logger.Logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.logger.Info("Watching working tree", zap.String("root", p.Root), zap.Duration("debounce", opts.cfg.Watch.Debounce))
			return w.Run(ctx)
		},
	}

	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the ka configuration",
	}

	var force bool
	var configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		// The config being written may not exist or be valid yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Init(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(shiftCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	return rootCmd
}

func (o *options) backend() (backend, error) {
	if o.remote != "" {
		addr := o.remote
		if !strings.Contains(addr, "://") {
			addr = "http://" + addr
		}
		return remoteBackend{client.New(addr)}, nil
	}

	p, err := parcel.Open(o.cfg, o.logger, true)
	if err != nil {
		return nil, err
	}
	return &localBackend{p: p}, nil
}

func now() uint64 {
	return uint64(time.Now().Unix())
}

func printUpdate(out io.Writer, result *repository.UpdateResult) {
	if len(result.AffectedFiles) == 0 {
		fmt.Fprintf(out, "Nothing to record, still at version %d\n", result.Cursor)
		return
	}
	fmt.Fprintf(out, "Recorded version %d with %d file(s)\n", result.Cursor, len(result.AffectedFiles))
	for _, path := range result.AffectedFiles {
		fmt.Fprintf(out, "\t%s\n", path)
	}
}

func printStatus(out io.Writer, entries []repository.StatusEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Working tree matches the current version")
		return
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	groups := []struct {
		kind  repository.StatusKind
		title string
		mark  string
	}{
		{repository.StatusModified, "Modified files:", yellow("M")},
		{repository.StatusRestored, "Restored files:", green("R")},
		{repository.StatusUntracked, "Untracked files:", blue("?")},
		{repository.StatusDeleted, "Deleted files:", red("D")},
	}

	for _, g := range groups {
		var paths []string
		for _, e := range entries {
			if e.Kind == g.kind {
				paths = append(paths, e.Path)
			}
		}
		if len(paths) == 0 {
			continue
		}
		fmt.Fprintln(out, g.title)
		for _, path := range paths {
			fmt.Fprintf(out, "\t%s %s\n", g.mark, path)
		}
		fmt.Fprintln(out)
	}
}

func printDiff(out io.Writer, d *shared.FileDiff) {
	if len(d.Hunks) == 0 {
		return
	}

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	fmt.Fprintf(out, "\ndiff --ka a/%s b/%s\n", d.Path, d.Path)
	for _, hunk := range d.Hunks {
		header.Fprintf(out, "@@ -%d,%d +%d,%d @@\n", hunk.OldStart, hunk.OldLines, hunk.NewStart, hunk.NewLines)
		for _, line := range hunk.Lines {
			switch {
			case strings.HasPrefix(line, "+"):
				added.Fprintln(out, line)
			case strings.HasPrefix(line, "-"):
				removed.Fprintln(out, line)
			default:
				fmt.Fprintln(out, line)
			}
		}
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
