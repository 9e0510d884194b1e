package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docmodel/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/services"
)

type testServices struct {
	content  *memory.ContentProvider
	recovery *memory.RecoveryStore
	config   *memory.ConfigStore
	cache    *services.DocumentCache
}

// setupTestServices wires the commands to in-memory adapters and restores
// the previous wiring when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		content:  memory.NewContentProvider(""),
		recovery: memory.NewRecoveryStore(),
		config:   memory.NewConfigStore(),
	}
	ts.restart(t)

	prevDocs, prevSettings, prevRecovery, prevResolve := documentService, settingsService, recoveryService, resolveResource
	t.Cleanup(func() {
		documentService, settingsService, recoveryService, resolveResource = prevDocs, prevSettings, prevRecovery, prevResolve
	})

	Configure(Config{
		Documents: ts.cache,
		Settings:  services.NewSettingsService(ts.config),
		Recovery:  services.NewRecoveryService(ts.recovery),
		ResolveResource: func(arg string) (domain.ResourceID, error) {
			return domain.ResourceID(memory.UntitledScheme + "://" + arg), nil
		},
	})
	return ts
}

// restart replaces the document cache, as a new process would, keeping
// the content and recovery stores.
func (ts *testServices) restart(t *testing.T) {
	t.Helper()
	ts.cache = services.NewDocumentCache(services.DocumentCacheConfig{
		Registry: services.NewContentRegistry(ts.content),
		Recovery: ts.recovery,
	})
	t.Cleanup(ts.cache.Close)
	documentService = ts.cache
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// mustRun is runCLI for commands expected to succeed.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	require.NoError(t, err, out)
	return out
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
