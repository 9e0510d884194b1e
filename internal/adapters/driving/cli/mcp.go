package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docmodel/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose document models over the Model Context Protocol",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve document tools to an MCP client",
	Long: `Serve open/read/edit/save/revert/close tools and document resources to
an MCP client. Every client shares the same models, so an edit made by one
tool call is visible to the next and survives restarts through the
configured recovery store.

Without --port the server speaks JSON-RPC on stdin and stdout, which is
what desktop assistants expect:

  {"mcpServers": {"docmodel": {"command": "docmodel", "args": ["mcp", "serve"]}}}

With --port it serves streamable HTTP instead, for the MCP Inspector or
remote clients:

  docmodel mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{Documents: documentService, Recovery: recoveryService})
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	go func() {
		if err := documentService.Watch(ctx); err != nil && ctx.Err() == nil {
			cmd.PrintErrf("watching resources: %v\n", err)
		}
	}()

	if port <= 0 {
		return server.Run(ctx)
	}
	addr := fmt.Sprintf(":%d", port)
	cmd.Printf("MCP server listening on http://localhost%s\n", addr)
	return server.RunHTTP(ctx, addr)
}
