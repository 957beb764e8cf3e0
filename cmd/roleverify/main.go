package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/roleverify/internal/browser"
	"github.com/v0xg/roleverify/internal/config"
	"github.com/v0xg/roleverify/internal/scenario"
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		os.Exit(1)
	}

	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "roleverify",
		Short: "Verify the Prompt Contract Editor enters its role-generation loading state",
		Long: `roleverify drives a headless browser against the Prompt Contract Editor,
switches to the Pro tier, opens the role generator, submits a persona and
checks that the "Generate Role" button turns into "Generating...". A screenshot
of the editor panel is written as evidence.

Run it with no arguments to verify http://localhost:3000.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *cfg)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&cfg.URL, "url", cfg.URL, "Address of the application under test")
	f.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Screenshot path, overwritten on each run")
	f.StringVar(&cfg.Browser, "browser", cfg.Browser, "Chrome/Chromium binary (default: look up, then download)")
	f.BoolVar(&cfg.Headed, "headed", cfg.Headed, "Show the browser window")
	f.IntVar(&cfg.Width, "width", cfg.Width, "Viewport width")
	f.IntVar(&cfg.Height, "height", cfg.Height, "Viewport height")
	f.UintVar(&cfg.MaxWidth, "max-width", cfg.MaxWidth, "Downscale screenshots wider than this (0 keeps native size)")
	f.BoolVar(&cfg.Highlight, "highlight", cfg.Highlight, "Outline the loading button in the screenshot")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Print visible elements when a step fails")

	return rootCmd
}

func run(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.LogLevel, os.Stderr)
	driver := browser.NewDriver(cfg.BrowserOptions())
	runner := scenario.New(driver, cfg.ScenarioOptions(), os.Stdout, logger, cfg.Verbose)

	if _, err := runner.Run(ctx); err != nil {
		fmt.Printf("%s %v\n", color.RedString("✗"), err)
		return err
	}
	fmt.Printf("%s Loading state verified\n", color.GreenString("✓"))
	return nil
}
