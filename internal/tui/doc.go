// Package tui provides the terminal view behind `herd board watch --tui`.
//
// The view shows one board's tasks with their status, the selected task's
// reason and entries, and a filter box. It reloads whenever the board store
// reports a change, so writes from other herd processes appear live.
//
// Usage:
//
//	changes, _ := store.Watch(ctx)
//	err := tui.RunBoard(ctx, loader, changes)
//
// Keys: up/down or j/k move the selection, '/' opens the filter, esc clears
// it, 'r' reloads, and 'q' or Ctrl+C quits.
package tui
