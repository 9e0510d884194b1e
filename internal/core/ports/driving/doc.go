// Package driving declares what the CLI and the MCP server may ask of the
// core: opening and editing document models through DocumentModelService,
// inspecting recovery records through RecoveryService, and reading or
// changing AppSettings through SettingsService.
//
// internal/core/services implements all three.
package driving
