package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
)

// DocumentInput identifies a document.
type DocumentInput struct {
	ID string `json:"id" jsonschema:"resource id, e.g. file:///tmp/notes.txt or github://owner/repo/README.md"`
}

// ReadInput is the input schema for the read_document tool.
type ReadInput struct {
	ID    string     `json:"id" jsonschema:"resource id of an open document"`
	Range *RangeArgs `json:"range,omitempty" jsonschema:"optional span to read; the whole document when omitted"`
}

// RangeArgs is a 1-based span; columns count characters.
type RangeArgs struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// EditArgs replaces the text in Range with Text.
type EditArgs struct {
	Range RangeArgs `json:"range"`
	Text  string    `json:"text" jsonschema:"replacement text; empty deletes the range"`
}

// EditInput is the input schema for the edit_document tool.
type EditInput struct {
	ID    string     `json:"id" jsonschema:"resource id of an open document"`
	Edits []EditArgs `json:"edits" jsonschema:"edits applied in order as one atomic batch; each range refers to the text left by the edits before it"`
}

// SaveInput is the input schema for the save_document tool.
type SaveInput struct {
	ID        string `json:"id" jsonschema:"resource id of an open document"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"save even if the resource changed since it was loaded"`
}

// DocumentOutput summarises a document after a tool call.
type DocumentOutput struct {
	ID         string `json:"id"`
	Version    int    `json:"version"`
	Dirty      bool   `json:"dirty"`
	Readonly   bool   `json:"readonly"`
	Encoding   string `json:"encoding"`
	LineEnding string `json:"line_ending"`
	LanguageID string `json:"language_id,omitempty"`
}

// ReadOutput is the output schema for the read_document tool.
type ReadOutput struct {
	DocumentOutput
	Content string `json:"content"`
}

// SaveOutput is the output schema for the save_document tool.
type SaveOutput struct {
	DocumentOutput
	Saved bool `json:"saved"`
}

// CloseOutput is the output schema for the close_document tool.
type CloseOutput struct {
	ID     string `json:"id"`
	Closed bool   `json:"closed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "open_document",
		Description: "Open a document and keep it loaded, replaying any unsaved edits recorded for it",
	}, s.handleOpen)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_document",
		Description: "Read the current content of an open document, including unsaved edits",
	}, s.handleRead)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "edit_document",
		Description: "Apply a batch of range edits to an open document. Edits stay unsaved until save_document",
	}, s.handleEdit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_document",
		Description: "Save an open document. Fails with a conflict if the resource changed unless overwrite is set",
	}, s.handleSave)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "revert_document",
		Description: "Discard unsaved edits and reload the document from its resource",
	}, s.handleRevert)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "close_document",
		Description: "Release an open document",
	}, s.handleClose)
}

func (s *Server) handleOpen(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if input.ID == "" {
		return nil, DocumentOutput{}, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}

	id := domain.ResourceID(input.ID)
	ref, err := s.ports.Documents.GetReference(ctx, id)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("opening %s: %w", id, err)
	}
	doc := s.hold(id, ref)
	return nil, summarise(doc), nil
}

func (s *Server) handleRead(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ReadInput,
) (*mcp.CallToolResult, ReadOutput, error) {
	doc, err := s.document(domain.ResourceID(input.ID))
	if err != nil {
		return nil, ReadOutput{}, err
	}

	var r *domain.Range
	if input.Range != nil {
		rng := input.Range.toDomain()
		r = &rng
	}
	content, err := doc.CurrentContent(r)
	if err != nil {
		return nil, ReadOutput{}, err
	}
	return nil, ReadOutput{DocumentOutput: summarise(doc), Content: content}, nil
}

func (s *Server) handleEdit(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input EditInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.document(domain.ResourceID(input.ID))
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	batch := make(domain.EditBatch, len(input.Edits))
	for i, e := range input.Edits {
		batch[i] = domain.Edit{NewText: e.Text, Range: e.Range.toDomain()}
	}
	if err := doc.ApplyEdits(batch); err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, summarise(doc), nil
}

func (s *Server) handleSave(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveInput,
) (*mcp.CallToolResult, SaveOutput, error) {
	doc, err := s.document(domain.ResourceID(input.ID))
	if err != nil {
		return nil, SaveOutput{}, err
	}

	saved, err := doc.Save(ctx, input.Overwrite)
	if err != nil {
		return nil, SaveOutput{}, fmt.Errorf("saving %s: %w", input.ID, err)
	}
	return nil, SaveOutput{DocumentOutput: summarise(doc), Saved: saved}, nil
}

func (s *Server) handleRevert(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.document(domain.ResourceID(input.ID))
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	if err := doc.Revert(ctx); err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("reverting %s: %w", input.ID, err)
	}
	return nil, summarise(doc), nil
}

func (s *Server) handleClose(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, CloseOutput, error) {
	if err := s.release(domain.ResourceID(input.ID)); err != nil {
		return nil, CloseOutput{}, err
	}
	return nil, CloseOutput{ID: input.ID, Closed: true}, nil
}

func (r RangeArgs) toDomain() domain.Range {
	return domain.NewRange(r.StartLine, r.StartColumn, r.EndLine, r.EndColumn)
}

func summarise(doc driving.Document) DocumentOutput {
	return infoOutput(doc.Info())
}

func infoOutput(info domain.DocumentInfo) DocumentOutput {
	return DocumentOutput{
		ID:         info.ID.String(),
		Version:    info.Version,
		Dirty:      info.Dirty,
		Readonly:   info.Readonly,
		Encoding:   info.Encoding,
		LineEnding: domain.LineEndingName(info.LineEnding),
		LanguageID: info.LanguageID,
	}
}
