package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/grove"
	"github.com/aretw0/grove/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the workspace getters as MCP tools",
	Long: `Lets an agent browse the collection tree through the Model Context
Protocol: get_workspace, list_root_collections, get_collection_children and
get_request, plus the grove://providers resource.

The stdio transport (default) speaks JSON-RPC on stdin/stdout; logs stay on
stderr. The sse transport listens on --port, or on http.port from the
configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port := cfg.HTTP.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		a, err := bootstrap(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcp.NewServer(a.grove.Service(), grove.Version, mcp.WithLogger(a.logger))
		switch transport {
		case "stdio":
			a.logger.Info("mcp server on stdio")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ServeSSE(ctx, port)
		default:
			return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "stdio or sse")
	mcpCmd.Flags().Int("port", 0, "SSE listen port (defaults to http.port)")
}
