// Package state keeps per-user conversation sessions in memory. Sessions are
// not persisted; a restart returns every user to the zero session.
package state
