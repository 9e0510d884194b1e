package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
)

var watchCmd = &cobra.Command{
	Use:   "watch <resource>...",
	Short: "Keep documents open and follow changes",
	Long: `Open the given documents and print every change until interrupted.
Clean documents are reloaded when their resource changes on disk.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)
	events, err := documentService.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	refs := make([]driving.Reference, 0, len(args))
	defer func() {
		for _, ref := range refs {
			ref.Release() //nolint:errcheck // shutting down
		}
	}()
	for _, arg := range args {
		ref, err := openDocument(ctx, arg)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
		doc := ref.Document()
		cmd.Printf("watching %s %s\n", doc.ID(), statusMarker(doc.Dirty()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return documentService.Watch(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				cmd.Println(formatEvent(ev))
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func formatEvent(ev domain.Event) string {
	switch ev.Type {
	case domain.EventContentChanged:
		return fmt.Sprintf("%s changed  v%d %s", ev.ID, ev.Version, statusMarker(ev.Dirty))
	case domain.EventMetadataChanged:
		return fmt.Sprintf("%s metadata %s %s %s", ev.ID, ev.Encoding, domain.LineEndingName(ev.LineEnding), orDefault(ev.LanguageID, "-"))
	case domain.EventModelCreated:
		return fmt.Sprintf("%s opened", ev.ID)
	case domain.EventModelDisposed:
		return fmt.Sprintf("%s closed", ev.ID)
	default:
		return fmt.Sprintf("%s %s", ev.ID, ev.Type)
	}
}
