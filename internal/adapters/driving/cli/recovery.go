package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Inspect unsaved edits kept for crash recovery",
	Long: `Every unsaved edit is recorded in the recovery store so it survives a crash.
Records are replayed the next time the document is opened, as long as the
resource has not changed since.`,
	RunE: runRecoveryList,
}

var recoveryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored recovery records",
	RunE:  runRecoveryList,
}

var recoveryShowCmd = &cobra.Command{
	Use:   "show <resource>",
	Short: "Show the recovery record for a resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecoveryShow,
}

var recoveryDiscardCmd = &cobra.Command{
	Use:   "discard <resource>",
	Short: "Delete the recovery record for a resource",
	Long: `Delete the recovery record for a resource. Its unsaved edits are lost and
the next open shows the stored content.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecoveryDiscard,
}

func init() {
	recoveryCmd.AddCommand(recoveryListCmd)
	recoveryCmd.AddCommand(recoveryShowCmd)
	recoveryCmd.AddCommand(recoveryDiscardCmd)
	rootCmd.AddCommand(recoveryCmd)
}

func runRecoveryList(cmd *cobra.Command, _ []string) error {
	if recoveryService == nil {
		return errors.New("recovery service not configured")
	}

	summaries, err := recoveryService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list recovery records: %w", err)
	}

	if len(summaries) == 0 {
		cmd.Println("No recovery records.")
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Recovery records (%d)", len(summaries))))
	for _, s := range summaries {
		detail := fmt.Sprintf("%d edits", s.Edits)
		if s.Size > 0 || s.Edits == 0 {
			detail = fmt.Sprintf("%d bytes", s.Size)
		}
		cmd.Printf("  %s  %s %s\n", s.ID, labelStyle.Render(string(s.Kind)), detail)
	}
	return nil
}

func runRecoveryShow(cmd *cobra.Command, args []string) error {
	if recoveryService == nil {
		return errors.New("recovery service not configured")
	}

	id, err := resolveArg(args[0])
	if err != nil {
		return err
	}
	rec, err := recoveryService.Get(commandContext(cmd), id)
	if err != nil {
		return fmt.Errorf("recovery record for %s: %w", id, err)
	}

	cmd.Println(titleStyle.Render(id.String()))
	cmd.Printf("%s%s\n", labelStyle.Render("Kind:       "), rec.Kind)
	cmd.Printf("%s%s\n", labelStyle.Render("Base:       "), rec.BaseFingerprint)
	if rec.Content != "" {
		cmd.Println()
		cmd.Print(rec.Content)
		return nil
	}
	for i, batch := range rec.EditLog {
		cmd.Printf("%s\n", labelStyle.Render(fmt.Sprintf("Batch %d:", i+1)))
		for _, e := range batch {
			cmd.Printf("  %s %q\n", e.Range, e.NewText)
		}
	}
	return nil
}

func runRecoveryDiscard(cmd *cobra.Command, args []string) error {
	if recoveryService == nil {
		return errors.New("recovery service not configured")
	}

	id, err := resolveArg(args[0])
	if err != nil {
		return err
	}
	if err := recoveryService.Discard(commandContext(cmd), id); err != nil {
		return fmt.Errorf("failed to discard recovery record: %w", err)
	}
	cmd.Printf("Discarded recovery record for %s\n", id)
	return nil
}
