// Package ui implements the interactive side of a sync run using bubbletea's Elm architecture.
//
// A single program covers the whole run:
//  1. [RunView] : spinner, current phase and the latest track outcomes
//  2. [SelectView] : pick a playlist when the engine asks its selector for one
//  3. [ResultView] : summary and unmatched tracks
//
// The engine runs on its own goroutine. Its progress updates arrive over a channel, and its
// selection requests are sent into the program, answered on a reply channel.
//
// [PromptSelector] is the line-oriented fallback used when stdin or stdout is not a terminal.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, /, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
