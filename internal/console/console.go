// Package console implements the interactive echo loop used to check that a
// patched program still gets a working terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

const (
	Greeting = "Hello World on macOS! (type 'exit' to quit):"
	Farewell = "Goodbye!"
	Prompt   = "> "
)

// LineReader is satisfied by *readline.Instance.
type LineReader interface {
	Readline() (string, error)
}

// Run greets, then echoes every line until "exit", end of input or ctx is
// done. A line that is already being read is not interrupted by ctx.
func Run(ctx context.Context, r LineReader, w io.Writer) error {
	fmt.Fprintln(w, Greeting)
	for ctx.Err() == nil {
		line, err := r.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "exit" {
			break
		}
		fmt.Fprintf(w, "You said: %s\n", line)
	}
	fmt.Fprintln(w, Farewell)
	return nil
}

// Config configures a readline-backed LineReader.
type Config struct {
	Prompt      string
	HistoryFile string
	Stdin       io.ReadCloser
	Stdout      io.Writer
	Completions []string
}

// NewReadline opens a terminal line editor. The caller closes it.
func NewReadline(cfg Config) (*readline.Instance, error) {
	if cfg.Prompt == "" {
		cfg.Prompt = Prompt
	}
	var items []readline.PrefixCompleterInterface
	for _, c := range cfg.Completions {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewEx(&readline.Config{
		Prompt:          cfg.Prompt,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           cfg.Stdin,
		Stdout:          cfg.Stdout,
	})
}

type plainReader struct {
	sc     *bufio.Scanner
	w      io.Writer
	prompt string
}

// NewPlainReader reads lines from r without terminal handling, writing the
// prompt to w before each read. Used when input is not a terminal.
func NewPlainReader(r io.Reader, w io.Writer, prompt string) LineReader {
	return &plainReader{sc: bufio.NewScanner(r), w: w, prompt: prompt}
}

func (p *plainReader) Readline() (string, error) {
	if p.prompt != "" {
		fmt.Fprint(p.w, p.prompt)
	}
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.sc.Text(), nil
}
