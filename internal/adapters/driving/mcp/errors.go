// Package mcp provides an MCP (Model Context Protocol) server adapter for docmodel.
// It lets AI assistants open, read, edit and save shared document models.
package mcp

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")

// ErrNotOpen is returned by tools that need a document opened with open_document.
var ErrNotOpen = errors.New("mcp: document is not open")
