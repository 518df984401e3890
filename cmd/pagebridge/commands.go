package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/byteowlz/pagebridge/internal/logging"
	"github.com/byteowlz/pagebridge/internal/messaging"
	"github.com/byteowlz/pagebridge/internal/popup"
	"github.com/byteowlz/pagebridge/internal/server"
)

var (
	extractMode string
	outputFile  string
	serveNative bool
	serveHTTP   string
)

var extractCmd = &cobra.Command{
	Use:   "extract <url|file>",
	Short: "Extract the content of a page once and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var openCmd = &cobra.Command{
	Use:   "open <url|file>",
	Short: "Load a page and open the popup",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

var serveCmd = &cobra.Command{
	Use:   "serve <url|file>",
	Short: "Load a page and answer extraction requests over native messaging or HTTP",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

func init() {
	extractCmd.Flags().StringVarP(&extractMode, "mode", "m", "", "extraction mode (Readability|Basic|Reader, default from config)")
	extractCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")

	serveCmd.Flags().BoolVar(&serveNative, "native", false, "speak Chrome native messaging on stdin/stdout")
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "serve the HTTP bridge on this address (default from config)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(logging.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return exitError(ExitConfigError, "%v", err)
	}

	ctx := cmd.Context()
	doc, err := a.loadPage(ctx, args[0])
	if err != nil {
		return exitError(ExitNetworkError, "%v", err)
	}

	if err := <-a.startContent(ctx, doc); err != nil {
		return exitError(ExitProcessError, "content module failed to load: %v", err)
	}

	mode := extractMode
	if mode == "" {
		mode = cfg.Extraction.DefaultMode
	}

	extracted, err := popup.NewClient(a.bus).Extract(ctx, mode)
	if err != nil {
		return exitError(ExitProcessError, "%v", err)
	}
	if extracted == messaging.ExtractionFailed {
		return exitError(ExitProcessError, "%s", messaging.ExtractionFailed)
	}

	if outputFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), extracted)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(extracted+"\n"), 0644); err != nil {
		return exitError(ExitFileIOError, "failed to write output file %s: %v", outputFile, err)
	}
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	// the terminal belongs to the popup; only errors reach stderr
	cfg, logger, err := setup(logging.Options{Quiet: true})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return exitError(ExitConfigError, "%v", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	doc, err := a.loadPage(ctx, args[0])
	if err != nil {
		return exitError(ExitNetworkError, "%v", err)
	}

	// the popup can open before the content module is ready; requests made
	// in between collapse to the failure reply
	loaded := a.startContent(ctx, doc)

	model, err := a.startPopup(ctx)
	if err != nil {
		return exitError(ExitProcessError, "popup failed to load: %v", err)
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return exitError(ExitProcessError, "popup: %v", err)
	}

	cancel()
	if err := <-loaded; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("content module failed to load", zap.Error(err))
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(logging.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return exitError(ExitConfigError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := a.loadPage(ctx, args[0])
	if err != nil {
		return exitError(ExitNetworkError, "%v", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := <-a.startContent(ctx, doc); err != nil {
			// keep serving; requests answer with the failure reply
			logger.Error("content module failed to load", zap.Error(err))
		}
		return nil
	})

	if serveNative {
		g.Go(func() error {
			err := messaging.NewNative(os.Stdin, os.Stdout, a.bus, logger.Named("native")).Serve(ctx)
			// the browser closing the port ends the session
			stop()
			return err
		})
	}

	if !serveNative || cmd.Flags().Changed("http") {
		addr := serveHTTP
		if strings.TrimSpace(addr) == "" {
			addr = cfg.Server.Addr
		}
		srv := server.New(a.bus, a.fetcher, logger.Named("http"), server.Options{
			Addr:          addr,
			FetchOpts:     fetchOptions(cfg),
			FetchAttempts: cfg.Network.Retries,
		})
		g.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return exitError(ExitNetworkError, "%v", err)
	}
	return nil
}
