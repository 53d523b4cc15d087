package main

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"enrolsight/internal/datasets"
	"enrolsight/internal/registry"
	"enrolsight/internal/runtime"
	"enrolsight/pkg/version"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP analysis server over stdio",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "graceful shutdown timeout")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	limits := runtime.NewLimits(settings.MaxConcurrentRequests, settings.MaxOpenDatasets)
	if settings.PreviewRowLimit > 0 {
		limits.PreviewRowLimit = settings.PreviewRowLimit
	}
	if settings.OperationTimeout > 0 {
		limits.OperationTimeout = settings.OperationTimeout
	}
	ctrl := runtime.NewController(limits)
	mw := runtime.NewMiddleware(ctrl)

	mgr := datasets.NewManager(0, 0, ctrl, nil, logger)
	mgr.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mgr.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("dataset manager shutdown incomplete")
		}
	}()

	reg := registry.New()
	exportFilter := registry.NewExportToolFilterFromEnv()

	srv := server.NewMCPServer(
		"Enrolsight Analysis Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(buildHooks(logger)),
		server.WithToolHandlerMiddleware(mw.ToolMiddleware),
		server.WithToolFilter(func(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
			return exportFilter.FilterTools(ctx, tools)
		}),
	)

	registry.RegisterDatasetTools(srv, reg, ctrl.LimitsSnapshot(), mgr, settings)
	registry.RegisterMetricTools(srv, reg, mgr, settings)
	registry.RegisterExportTools(srv, reg, mgr, settings)

	logger.Info().
		Str("version", version.Version()).
		Str("data_dir", settings.DataDir).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_datasets", limits.MaxOpenDatasets).
		Msg("server bootstrap configured")

	return server.ServeStdio(srv)
}

// buildHooks constructs mcp-go server hooks for basic telemetry.
func buildHooks(logger zerolog.Logger) *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Info().Str("session_id", session.SessionID()).Msg("session registered")
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Info().Str("session_id", session.SessionID()).Msg("session unregistered")
	})

	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		logger.Info().Int("tools", len(res.Tools)).Msg("list_tools served")
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		logger.Info().Str("tool", req.Params.Name).Msg("tool call served")
	})

	return hooks
}
