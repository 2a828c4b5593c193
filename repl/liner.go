package repl

import (
	"errors"
	"fmt"
	"os"

	"github.com/peterh/liner"
)

// Terminal is a LineReader with line editing and history, for interactive
// use on a terminal.
type Terminal struct {
	state       *liner.State
	historyFile string
}

// NewTerminal takes over the terminal. historyFile is read now and written
// by Close; an empty name disables persistent history.
func NewTerminal(historyFile string) *Terminal {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	t := &Terminal{state: state, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return t
}

func (t *Terminal) Prompt(prompt string) (string, error) {
	line, err := t.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	return line, err
}

func (t *Terminal) AppendHistory(item string) {
	t.state.AppendHistory(item)
}

// Close writes the history file and restores the terminal.
func (t *Terminal) Close() error {
	var werr error
	if t.historyFile != "" {
		f, err := os.Create(t.historyFile)
		if err != nil {
			werr = fmt.Errorf("writing history: %w", err)
		} else {
			if _, err := t.state.WriteHistory(f); err != nil {
				werr = fmt.Errorf("writing history: %w", err)
			}
			_ = f.Close()
		}
	}
	return errors.Join(werr, t.state.Close())
}
