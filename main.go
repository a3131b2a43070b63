package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"homeautomation-crosspost/pkg/config"
	"homeautomation-crosspost/pkg/crosspostservice"
	"homeautomation-crosspost/pkg/keywords"
	"homeautomation-crosspost/pkg/logger"
	"homeautomation-crosspost/pkg/pipeline"
)

var version = "dev"

var cfgFile string

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "crosspost",
		Short:         "Cross-post relevant home automation posts to a second subreddit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yml)")

	root.AddCommand(runCommand(), watchCommand(), checkCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crosspost version %s\n", version)
		},
	})
	return root
}

// setup loads configuration and builds the service with its logger.
func setup(ctx context.Context, dryRun bool) (*crosspostservice.Service, logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	svc, err := crosspostservice.NewService(ctx, crosspostservice.Config{
		App:    cfg,
		Logger: log,
		DryRun: dryRun,
	})
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return svc, log, nil
}

func runCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one crawl pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, log, err := setup(ctx, dryRun)
			if err != nil {
				return err
			}
			defer func() {
				_ = svc.Close(context.Background())
				_ = log.Sync()
			}()

			result, err := svc.RunOnce(ctx)
			printResult(cmd, result, dryRun)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify without publishing or updating the ledger")
	return cmd
}

func printResult(cmd *cobra.Command, result pipeline.Result, dryRun bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %s in %s\n", result.RunID, result.State, result.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  fetched %d, eligible %d\n", result.Fetched, result.Eligible)

	verb := "cross-posted"
	if dryRun {
		verb = "would cross-post"
		for _, post := range result.Selected {
			fmt.Fprintf(out, "  %s %s %q\n", verb, post.ID, post.Title)
		}
		return
	}
	for _, pub := range result.Published {
		fmt.Fprintf(out, "  %s %s %q -> %s\n", verb, pub.Post.ID, pub.Post.Title, pub.Result.URL)
	}
}

func watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run crawl passes on the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, log, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer func() {
				_ = svc.Close(context.Background())
				_ = log.Sync()
			}()

			return svc.Watch(ctx)
		},
	}
}

func checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <text>",
		Short: "Report whether text mentions a configured topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			matcher, err := keywords.NewMatcher(cfg.Topics)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if matcher.Matches(text) {
				fmt.Fprintln(cmd.OutOrStdout(), "match")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "no match")
			return nil
		},
	}
}
