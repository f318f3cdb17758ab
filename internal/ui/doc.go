// Package ui contains the Bubble Tea program that shows one sitemap page as a
// list of widget rows.
//
// Message flow:
//   - Bubble Tea invokes Model.Update with incoming messages, which are routed
//     through a typed handler registry so each tea.Msg is handled by a focused
//     function (key presses, backend events, command results, restarts).
//   - Update is the only place the widget store is mutated. Backend events
//     arrive from the watcher's channel and are applied by the data
//     dispatcher, which drops events from superseded fetches.
//
// State ownership:
//   - List state (items, filter, cursor, viewport) lives in
//     internal/ui/state.Level. Items are the flattened widget tree.
//   - Widget state lives in an internal/state.WidgetStore. Rows are rendered
//     from the store on every View, so a replaced page shows up without any
//     per-row bookkeeping.
//
// Commands:
//   - Enter (or space with an empty filter) asks the selected widget to send
//     its next command. The row shows the command as pending until the
//     server echoes the new state in a later page or the dispatcher reports
//     the command finished. The row's state never changes optimistically.
package ui
