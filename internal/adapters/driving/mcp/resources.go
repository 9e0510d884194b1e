package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docmodel resources.
	uriScheme = "docmodel://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing live models.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents currently loaded, with version and dirty state",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Static resource listing stored recovery records.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "recovery",
		Name:        "recovery",
		Description: "Unsaved edits recorded for crash recovery",
		MIMEType:    "application/json",
	}, s.handleRecoveryResource)

	// Template for live document content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Current content of a loaded document; documentId is the URL-escaped resource id",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

// handleDocumentsResource returns a summary of every live model.
func (s *Server) handleDocumentsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	infos := s.ports.Documents.Models()

	type docInfo struct {
		DocumentOutput
		RefCount int `json:"ref_count"`
	}
	out := make([]docInfo, len(infos))
	for i := range infos {
		out[i] = docInfo{DocumentOutput: infoOutput(infos[i]), RefCount: infos[i].RefCount}
	}

	return jsonResult(req.Params.URI, out)
}

// handleRecoveryResource lists stored recovery records.
func (s *Server) handleRecoveryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Recovery == nil {
		return jsonResult(req.Params.URI, []struct{}{})
	}

	summaries, err := s.ports.Recovery.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing recovery records: %w", err)
	}

	type recordInfo struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
		Base string `json:"base_fingerprint"`
		Edit int    `json:"edits,omitempty"`
		Size int    `json:"size,omitempty"`
	}
	out := make([]recordInfo, len(summaries))
	for i, sum := range summaries {
		out[i] = recordInfo{
			ID:   sum.ID.String(),
			Kind: string(sum.Kind),
			Base: sum.BaseFingerprint.String(),
			Edit: sum.Edits,
			Size: sum.Size,
		}
	}

	return jsonResult(req.Params.URI, out)
}

// handleDocumentContentResource returns the content of a live document.
func (s *Server) handleDocumentContentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractDocumentID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ref, ok := s.ports.Documents.GetReferenceIfExists(id)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	defer ref.Release() //nolint:errcheck // read-only handle

	content, err := ref.Document().CurrentContent(nil)
	if err != nil {
		return nil, fmt.Errorf("reading document content: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     content,
		}},
	}, nil
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the resource id from a URI like
// docmodel://documents/{documentId}, where documentId is URL-escaped.
func extractDocumentID(uri string) domain.ResourceID {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return domain.ResourceID(id)
}
