// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package menu implements the interactive text front-end, grounded on the
// reference implementation's AutoMenu: print a title and numbered items,
// read a short key, dispatch to the matching hook, and loop until the
// user backs out or quits.
package menu

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Item is one selectable line of a Menu: Key is what the user types
// (case-insensitive), Label is the printed description, and Hook runs
// when Key is chosen. A Hook returning false ends the menu loop (the
// reference's "go back" behavior); true keeps the menu open.
type Item struct {
	Key   string
	Label string
	Hook  func() bool
}

// keyLengthMax mirrors the reference AutoMenu's fixed input-key buffer
// size.
const keyLengthMax = 3

// Menu is a titled, looping list of Items read from In and printed to Out.
type Menu struct {
	Title string
	Items []Item
	In    io.Reader
	Out   io.Writer
}

// quitMessage is printed when the user chooses to quit, matching the
// reference GamesmanExit's farewell text.
const quitMessage = "Thanks for using GamesmanExperiment!"

// Run prints the menu and dispatches input until the user types "b" (back)
// or "q" (quit). Run returns true if the loop ended via quit.
func (m Menu) Run() bool {
	reader := bufio.NewReader(m.In)
	for {
		fmt.Fprintln(m.Out, m.Title)
		for _, it := range m.Items {
			fmt.Fprintf(m.Out, "  %s) %s\n", it.Key, it.Label)
		}
		fmt.Fprintln(m.Out, "  b) Back")
		fmt.Fprintln(m.Out, "  q) Quit")
		fmt.Fprint(m.Out, "Selection: ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return true
		}
		key := normalizeKey(line)

		switch key {
		case "b":
			return false
		case "q":
			fmt.Fprintln(m.Out, quitMessage)
			return true
		}

		matched := false
		for _, it := range m.Items {
			if strings.EqualFold(it.Key, key) {
				matched = true
				if !it.Hook() {
					return false
				}
				break
			}
		}
		if !matched {
			fmt.Fprintln(m.Out, "Invalid selection, try again.")
		}
	}
}

func normalizeKey(line string) string {
	key := strings.ToLower(strings.TrimSpace(line))
	if len(key) > keyLengthMax {
		key = key[:keyLengthMax]
	}
	return key
}
