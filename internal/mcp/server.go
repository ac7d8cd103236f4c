package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/N525610/broker-advice-extractor/internal/advice"
	"github.com/N525610/broker-advice-extractor/internal/config"
	"github.com/N525610/broker-advice-extractor/internal/descriptions"
	"github.com/N525610/broker-advice-extractor/internal/pdf"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, logger *slog.Logger) (*Server, error) {
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		logger:     logger,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		descriptions.ExtractBrokerAdvice,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ExtractBrokerAdvice)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the broker advice PDF, relative to the document directory or absolute"),
		),
		mcp.WithString("output",
			mcp.Description("Optional workbook path (.xlsx) or directory to save the fields to"),
		),
		mcp.WithString("format",
			mcp.Description("Response format: 'text' for Field: Value lines (default) or 'json'"),
			mcp.Enum("text", "json"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtractBrokerAdvice)

	validateTool := mcp.NewTool(
		descriptions.ValidateBrokerAdvice,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ValidateBrokerAdvice)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidateBrokerAdvice)

	fieldsTool := mcp.NewTool(
		descriptions.ListFields,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ListFields)),
	)
	s.mcpServer.AddTool(fieldsTool, s.handleListFields)

	filesTool := mcp.NewTool(
		descriptions.ListFiles,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ListFiles)),
		mcp.WithString("directory",
			mcp.Description("Directory to search (uses the document directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional words that must appear in the file name"),
		),
	)
	s.mcpServer.AddTool(filesTool, s.handleListFiles)
}

// Handler functions
func (s *Server) handleExtractBrokerAdvice(_ context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	output, _ := args["output"].(string)
	format, _ := args["format"].(string)

	result, err := s.pdfService.ExtractFile(pdf.ExtractFileRequest{Path: path, Output: output})
	if err != nil {
		s.logger.Warn("mcp.extract.failed", "path", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	if format == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(s.formatExtractResult(result)), nil
}

func (s *Server) handleValidateBrokerAdvice(_ context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ValidateFile(pdf.ValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages, %d bytes)",
			result.Path, result.Pages, result.Size)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleListFields(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatFields(s.pdfService.Extractor().Taxonomy())), nil
}

func (s *Server) handleListFiles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	directory, _ := args["directory"].(string)
	query, _ := args["query"].(string)

	result, err := s.pdfService.SearchDirectory(pdf.SearchDirectoryRequest{
		Directory: directory,
		Query:     query,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.TotalCount == 0 {
		responseText := fmt.Sprintf("No PDF files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
		return mcp.NewToolResultText(responseText), nil
	}
	return mcp.NewToolResultText(s.formatFiles(result)), nil
}

// Formatting methods
func (s *Server) formatExtractResult(result *pdf.ExtractResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extracted broker advice: %s\n", result.Path)
	fmt.Fprintf(&b, "Run: %s\n", result.RunID)
	fmt.Fprintf(&b, "Pages: %d\n", result.Pages)
	if result.Output != "" {
		fmt.Fprintf(&b, "Workbook: %s\n", result.Output)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	b.WriteString("\n")
	b.WriteString(result.Fields.String())
	return b.String()
}

func (s *Server) formatFields(t *advice.Taxonomy) string {
	var b strings.Builder
	b.WriteString("Broker advice fields (output order):\n")
	for i, f := range advice.CanonicalFields() {
		labels := t.Labels(f)
		if len(labels) == 0 {
			fmt.Fprintf(&b, "%d. %s (found next to the party name)\n", i+1, f)
			continue
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, f, strings.Join(labels, ", "))
	}
	return b.String()
}

func (s *Server) formatFiles(result *pdf.SearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
	}
	return text
}

// Run serves MCP over the process's stdin and stdout until ctx is done
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	s.logger.Info("mcp.start", "directory", s.pdfService.Directory(), "tools", len(descriptions.ToolDescriptions))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	if err := stdio.Listen(ctx, stdin, stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
