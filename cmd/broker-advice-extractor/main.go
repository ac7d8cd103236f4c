package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/N525610/broker-advice-extractor/internal/advice"
	"github.com/N525610/broker-advice-extractor/internal/config"
	"github.com/N525610/broker-advice-extractor/internal/export"
	"github.com/N525610/broker-advice-extractor/internal/httpapi"
	"github.com/N525610/broker-advice-extractor/internal/mcp"
	"github.com/N525610/broker-advice-extractor/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		printVersion(stdout)
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, stderr)
	if cfg.IsDebug() {
		logger.Debug("config.loaded", "config", cfg.String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := advice.NewExtractor(cfg.Taxonomy(), cfg.ExtractOptions(), logger)
	service, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory, extractor, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create service: %v\n", err)
		return 1
	}

	switch {
	case cfg.IsStdioMode():
		err = runStdio(ctx, cfg, service, stdin, stdout, logger)
	case cfg.IsServerMode():
		err = runServer(ctx, cfg, service, logger)
	default:
		err = runCLI(cfg, service, stdout, logger)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newLogger builds the process logger. In stdio mode stdout carries the MCP
// protocol, so logs go to stderr and only when debugging.
func newLogger(cfg *config.Config, stderr io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	out := stderr
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		out = io.Discard
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func runStdio(ctx context.Context, cfg *config.Config, service *pdf.Service, stdin io.Reader, stdout io.Writer,
	logger *slog.Logger,
) error {
	server, err := mcp.NewServer(cfg, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx, stdin, stdout)
}

func runServer(ctx context.Context, cfg *config.Config, service *pdf.Service, logger *slog.Logger) error {
	handler := httpapi.New(service, logger)
	if err := httpapi.Serve(ctx, cfg.Address(), handler.Router(), logger); err != nil {
		return err
	}
	logger.Info("http.stopped")
	return nil
}

// cliResult is the JSON form of one processed file
type cliResult struct {
	*pdf.ExtractResult
	Error string `json:"error,omitempty"`
}

// runCLI extracts every PDF named on the command line, expanding directories,
// prints the fields and writes one workbook per PDF
func runCLI(cfg *config.Config, service *pdf.Service, stdout io.Writer, logger *slog.Logger) error {
	files, err := expandFiles(cfg.Files, cfg.MaxFileSize)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no PDF files found in %v", cfg.Files)
	}

	reader := pdf.NewReader(cfg.MaxFileSize, logger)
	writer := export.NewWriter(logger)
	single := len(files) == 1

	results := make([]cliResult, 0, len(files))
	failed := 0
	for _, path := range files {
		result, err := extractFile(reader, service, writer, path, export.OutputPath(cfg.OutputPath, path, single))
		if err != nil {
			logger.Error("cli.extract.failed", "file", path, "error", err)
			failed++
			results = append(results, cliResult{ExtractResult: &pdf.ExtractResult{Path: path}, Error: err.Error()})
			continue
		}
		results = append(results, cliResult{ExtractResult: result})
	}

	if cfg.JSON {
		if err := writeJSON(stdout, results, single); err != nil {
			return err
		}
	} else {
		writeText(stdout, results, single)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(files))
	}
	return nil
}

func extractFile(reader *pdf.Reader, service *pdf.Service, writer *export.Writer, path, output string) (
	*pdf.ExtractResult, error,
) {
	text, err := reader.ReadFile(path)
	if err != nil {
		return nil, err
	}
	result := service.Analyze(text)

	if err := writer.Save(output, result.Fields); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	result.Output = output
	return result, nil
}

// expandFiles replaces directory arguments with the PDFs found below them
func expandFiles(args []string, maxFileSize int64) ([]string, error) {
	search := pdf.NewSearch(maxFileSize)

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			files = append(files, arg)
			continue
		}

		found, err := search.FindPDFs(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", arg, err)
		}
		files = append(files, found...)
	}

	for i, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			files[i] = abs
		}
	}
	return files, nil
}

func writeJSON(w io.Writer, results []cliResult, single bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if single {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

func writeText(w io.Writer, results []cliResult, single bool) {
	for i, r := range results {
		if !single {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s\n", r.Path)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", r.Error)
			continue
		}
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warning)
		}
		fmt.Fprint(w, r.Fields.String())
		fmt.Fprintf(w, "Workbook: %s\n", r.Output)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Broker Advice Extractor\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
