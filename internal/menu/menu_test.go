package menu

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunDispatchesHook(t *testing.T) {
	var called bool
	var out bytes.Buffer
	m := Menu{
		Title: "Main Menu",
		Items: []Item{
			{Key: "s", Label: "Solve", Hook: func() bool { called = true; return false }},
		},
		In:  strings.NewReader("s\n"),
		Out: &out,
	}
	quit := m.Run()
	if !called {
		t.Error("expected hook to be called")
	}
	if quit {
		t.Error("expected Run to return false (not quit)")
	}
}

func TestRunBackReturnsFalse(t *testing.T) {
	var out bytes.Buffer
	m := Menu{Title: "Main Menu", In: strings.NewReader("b\n"), Out: &out}
	if m.Run() {
		t.Error("expected Run to return false on back")
	}
}

func TestRunQuitReturnsTrue(t *testing.T) {
	var out bytes.Buffer
	m := Menu{Title: "Main Menu", In: strings.NewReader("q\n"), Out: &out}
	if !m.Run() {
		t.Error("expected Run to return true on quit")
	}
	if !strings.Contains(out.String(), "Thanks for using") {
		t.Error("expected farewell message on quit")
	}
}

func TestRunRepromptsOnInvalidThenDispatches(t *testing.T) {
	var called bool
	var out bytes.Buffer
	m := Menu{
		Title: "Main Menu",
		Items: []Item{
			{Key: "s", Label: "Solve", Hook: func() bool { called = true; return false }},
		},
		In:  strings.NewReader("zz\ns\n"),
		Out: &out,
	}
	m.Run()
	if !called {
		t.Error("expected hook to eventually be called after an invalid selection")
	}
	if !strings.Contains(out.String(), "Invalid selection") {
		t.Error("expected an invalid-selection message to be printed")
	}
}
