// Command docmodel opens, edits and saves shared document models from the
// command line or over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docmodel/internal/adapters/driving/cli"
	"github.com/custodia-labs/docmodel/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := wire(ctx, appConfig{})
	if err != nil {
		return err
	}
	defer app.Close()

	cli.SetVersion(version)
	cli.Configure(cli.Config{
		Documents:       app.Documents,
		Settings:        app.Settings,
		Recovery:        app.Recovery,
		ResolveResource: resolvePath,
	})

	logger.Debug("docmodel: recovery backend %s", app.Backend)
	return cli.Execute(ctx)
}
