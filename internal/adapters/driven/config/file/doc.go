// Package file provides the TOML-backed driven.ConfigStore.
//
// Keys are flat and dot-separated in memory ("recovery.backend") and are
// written as nested TOML tables:
//
//	[recovery]
//	backend = "sqlite"
package file
