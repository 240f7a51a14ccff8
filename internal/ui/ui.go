// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the terminal output helpers the CLI commands share:
// colored headers, labels and counters, honoring NO_COLOR and TTY
// detection.
package ui

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color objects commands print through directly.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors enables or disables color output: disabled when requested,
// when NO_COLOR is set, or when stdout is not a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section header.
func Header(title string) {
	fmt.Println()
	_, _ = Bold.Println(title)
	_, _ = Bold.Println(underline(title))
}

// SubHeader prints a bold sub-section line.
func SubHeader(title string) {
	_, _ = Bold.Println(title)
}

// Label renders a bold field label.
func Label(text string) string {
	return Bold.Sprint(text)
}

// CountText renders a count for result summaries.
func CountText(n int) string {
	return Bold.Sprint(strconv.Itoa(n))
}

// DimText renders de-emphasized detail text.
func DimText(text string) string {
	return Dim.Sprint(text)
}

func underline(title string) string {
	line := make([]byte, len(title))
	for i := range line {
		line[i] = '='
	}
	return string(line)
}
