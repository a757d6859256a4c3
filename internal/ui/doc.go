// Package ui renders CLI output with lipgloss: a small [Palette] for headers and status lines, and
// [Table] for list views such as top tracks or playlists.
//
// Styles fall back to plain text when the writer is not a terminal.
package ui
