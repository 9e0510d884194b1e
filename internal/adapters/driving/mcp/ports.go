package mcp

import (
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
)

// Ports are the core services the MCP server calls into.
type Ports struct {
	Documents driving.DocumentModelService

	// Recovery backs the docmodel://recovery resource. When nil the
	// resource reports an empty list.
	Recovery driving.RecoveryService
}

// Validate returns ErrMissingDocumentService if Documents is nil.
func (p *Ports) Validate() error {
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	return nil
}
