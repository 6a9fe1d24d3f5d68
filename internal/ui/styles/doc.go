// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the lexchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The ui.theme setting selects detection ("auto"), forces a
background ("dark", "light") or drops color entirely ("notty").

# Colors (colors.go)

  - Indigo - Brand color, header and prompt
  - Teal - Citations
  - Emerald - Connected indicator
  - Amber - Incomplete answers and the login banner
  - Rose - Errors and the disconnected indicator

# Theme (theme.go)

	theme := styles.NamedTheme(cfg.UI.Theme)
	theme.SetSize(width, height)
	line := theme.ErrorLine.Render(err.Error())

# Spinners (animations.go)

SpinnerConfig frame sets convert to bubbles spinners with Bubble.
*/
package styles
