package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
)

// recoveryWait bounds how long a command waits for a deferred recovery record.
const recoveryWait = 5 * time.Second

var catCmd = &cobra.Command{
	Use:   "cat <resource>",
	Short: "Print a document, including unsaved edits",
	Long: `Print the current content of a document. Unsaved edits recorded for
crash recovery are replayed first, so the output matches what an editor
would show.`,
	Args: cobra.ExactArgs(1),
	RunE: runCat,
}

var editCmd = &cobra.Command{
	Use:   "edit <resource> <range> <text>",
	Short: "Replace a range of text",
	Long: `Replace the text covered by range with text. The edit is kept as an
unsaved change until 'docmodel save' runs, or saved straight away with --save.

Ranges are 1-based "line:column-line:column" spans; columns count characters.
A single "line:column" is an insertion point. Pass "-" as text to read it
from stdin.

Examples:
  docmodel edit notes.txt 1:1 "# Title\n"
  docmodel edit notes.txt 3:1-3:6 "Hello" --save`,
	Args: cobra.ExactArgs(3),
	RunE: runEdit,
}

var saveCmd = &cobra.Command{
	Use:   "save <resource>",
	Short: "Save unsaved edits",
	Long: `Write unsaved edits back to the resource. If the resource changed since it
was loaded the save is refused; pass --overwrite to replace it anyway.`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var revertCmd = &cobra.Command{
	Use:   "revert <resource>",
	Short: "Discard unsaved edits",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevert,
}

var setCmd = &cobra.Command{
	Use:   "set <resource>",
	Short: "Change encoding, line ending or language",
	Long: `Change document metadata. A new encoding reloads the content from the
resource, discarding unsaved edits. A new line ending rewrites the buffer
and is saved with the next save.`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func init() {
	catCmd.Flags().Bool("info", false, "print document status instead of content")
	catCmd.Flags().String("range", "", "print only the text in range")
	editCmd.Flags().Bool("save", false, "save after editing")
	editCmd.Flags().Bool("overwrite", false, "save even if the resource changed")
	saveCmd.Flags().Bool("overwrite", false, "save even if the resource changed")
	setCmd.Flags().String("encoding", "", "reload with this encoding, e.g. utf8, utf16le, gbk")
	setCmd.Flags().String("eol", "", "line ending: lf or crlf")
	setCmd.Flags().String("language", "", "language id, e.g. go or markdown")

	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(setCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	ref, err := openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer ref.Release() //nolint:errcheck // single release
	doc := ref.Document()

	if info, _ := cmd.Flags().GetBool("info"); info {
		cmd.Println(titleStyle.Render(doc.ID().String()))
		for _, line := range infoLines(doc.Info()) {
			cmd.Println(line)
		}
		return nil
	}

	var r *domain.Range
	if raw, _ := cmd.Flags().GetString("range"); raw != "" {
		parsed, err := parseRange(raw)
		if err != nil {
			return err
		}
		r = &parsed
	}

	content, err := doc.CurrentContent(r)
	if err != nil {
		return err
	}
	cmd.Print(content)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	r, err := parseRange(args[1])
	if err != nil {
		return err
	}
	text := args[2]
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	ctx := commandContext(cmd)
	ref, err := openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer ref.Release() //nolint:errcheck // single release
	doc := ref.Document()

	if err := doc.ApplyEdits(domain.EditBatch{{Range: r, NewText: text}}); err != nil {
		return fmt.Errorf("edit %s: %w", doc.ID(), err)
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		return saveDocument(cmd, doc, overwrite)
	}

	cmd.Printf("%s %s (version %d)\n", doc.ID(), statusMarker(doc.Dirty()), doc.Version())
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	ref, err := openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer ref.Release() //nolint:errcheck // single release

	overwrite, _ := cmd.Flags().GetBool("overwrite")
	return saveDocument(cmd, ref.Document(), overwrite)
}

func runRevert(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	ref, err := openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer ref.Release() //nolint:errcheck // single release
	doc := ref.Document()

	if err := doc.Revert(ctx); err != nil {
		return fmt.Errorf("revert %s: %w", doc.ID(), err)
	}
	cmd.Printf("%s reverted %s\n", doc.ID(), statusMarker(doc.Dirty()))
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	encoding, _ := cmd.Flags().GetString("encoding")
	eol, _ := cmd.Flags().GetString("eol")
	language, _ := cmd.Flags().GetString("language")
	if encoding == "" && eol == "" && language == "" {
		return errors.New("nothing to change: pass --encoding, --eol or --language")
	}

	ctx := commandContext(cmd)
	ref, err := openDocument(ctx, args[0])
	if err != nil {
		return err
	}
	defer ref.Release() //nolint:errcheck // single release
	doc := ref.Document()

	if encoding != "" {
		if err := doc.SetEncoding(ctx, encoding); err != nil {
			return fmt.Errorf("set encoding: %w", err)
		}
	}
	if eol != "" {
		seq, err := parseLineEnding(eol)
		if err != nil {
			return err
		}
		if err := doc.SetLineEnding(seq); err != nil {
			return fmt.Errorf("set line ending: %w", err)
		}
	}
	if language != "" {
		doc.SetLanguageID(language)
	}

	for _, line := range infoLines(doc.Info()) {
		cmd.Println(line)
	}
	return nil
}

// saveDocument saves doc, offering to overwrite on conflict when attached to a terminal.
func saveDocument(cmd *cobra.Command, doc driving.Document, overwrite bool) error {
	ctx := commandContext(cmd)
	if !doc.Dirty() {
		cmd.Printf("%s %s\n", doc.ID(), statusMarker(false))
		return nil
	}

	ok, err := doc.Save(ctx, overwrite)
	if errors.Is(err, domain.ErrSaveConflict) && !overwrite && confirm(cmd, "The resource changed since it was loaded. Overwrite? [y/N]: ") {
		ok, err = doc.Save(ctx, true)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", doc.ID(), err)
	}
	if !ok {
		return fmt.Errorf("save %s: %w", doc.ID(), domain.ErrSaveSuperseded)
	}

	cmd.Printf("%s %s (version %d)\n", doc.ID(), statusMarker(doc.Dirty()), doc.Version())
	return nil
}

// confirm asks a yes/no question, answering no when stdin is not a terminal.
func confirm(cmd *cobra.Command, prompt string) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	cmd.Print(prompt)
	return parseYesNo(readLine(bufio.NewReader(f)), false)
}

// openDocument returns a reference for arg once any stored recovery record
// has been applied.
func openDocument(ctx context.Context, arg string) (driving.Reference, error) {
	if documentService == nil {
		return nil, errors.New("document service not configured")
	}

	id, err := resolveArg(arg)
	if err != nil {
		return nil, err
	}
	ref, err := documentService.GetReference(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	if recoveryService != nil {
		awaitRecovery(ctx, ref.Document())
	}
	return ref, nil
}

// awaitRecovery blocks until a matching recovery record has been replayed
// into doc, or recoveryWait passes. Records that are delivered asynchronously
// would otherwise be dropped by the first edit.
func awaitRecovery(ctx context.Context, doc driving.Document) {
	rec, err := recoveryService.Get(ctx, doc.ID())
	if err != nil || !rec.IsValid() {
		return
	}
	if rec.Kind == domain.RecordDiff && len(rec.EditLog) == 0 {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, recoveryWait)
	defer cancel()
	events, err := doc.Subscribe(waitCtx)
	if err != nil {
		return
	}

	pending := func() bool {
		info := doc.Info()
		return rec.Matches(info.BaseFingerprint) && info.Version == info.PersistedVersion
	}
	for pending() {
		select {
		case <-waitCtx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}
	}
}

// parseRange parses "line:col" or "line:col-line:col".
func parseRange(s string) (domain.Range, error) {
	start, end, found := strings.Cut(s, "-")
	if !found {
		end = start
	}
	sl, sc, err := parsePosition(start)
	if err != nil {
		return domain.Range{}, fmt.Errorf("%w: range %q: %w", domain.ErrInvalidInput, s, err)
	}
	el, ec, err := parsePosition(end)
	if err != nil {
		return domain.Range{}, fmt.Errorf("%w: range %q: %w", domain.ErrInvalidInput, s, err)
	}
	r := domain.NewRange(sl, sc, el, ec)
	if err := r.Validate(); err != nil {
		return domain.Range{}, err
	}
	return r, nil
}

func parsePosition(s string) (int, int, error) {
	l, c, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, fmt.Errorf("position %q is not line:column", s)
	}
	line, err := strconv.Atoi(l)
	if err != nil {
		return 0, 0, fmt.Errorf("line %q: %w", l, err)
	}
	col, err := strconv.Atoi(c)
	if err != nil {
		return 0, 0, fmt.Errorf("column %q: %w", c, err)
	}
	return line, col, nil
}

func parseLineEnding(s string) (string, error) {
	switch strings.ToLower(s) {
	case "lf", "\n":
		return domain.LineEndingLF, nil
	case "crlf", "\r\n":
		return domain.LineEndingCRLF, nil
	default:
		return "", fmt.Errorf("%w: line ending %q, want lf or crlf", domain.ErrInvalidInput, s)
	}
}
