// Package services implements the driving port interfaces.
//
// DocumentCache owns the shared DocumentModel instances and hands out
// counted references to them. Each model keeps its own text buffer, save
// queue and recovery bookkeeping; collaborators (content providers, the
// recovery store, the clock) are reached only through driven ports.
//
// Services depend only on domain, the ports and golang.org/x/sync.
package services
