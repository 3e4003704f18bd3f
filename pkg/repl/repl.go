// Package repl provides the interactive query prompt.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/afero"

	"github.com/coolbeans/sparqlab/pkg/examples"
	"github.com/coolbeans/sparqlab/pkg/query"
	"github.com/coolbeans/sparqlab/pkg/render"
)

const (
	ps1 = "sparql> "
	ps2 = "...     "
)

const helpText = `Enter a query on one line, or over several lines finished by an empty
line or a trailing ';'.

Commands:
	:examples          list the example queries
	:show <name>       print an example query and its explanation
	:load <name>       run an example query
	:format <name>     set the output format (table, json, csv, html)
	:timing [on|off]   print elapsed time after each query
	:clear             discard the pending input
	help               this help
	exit               leave the prompt
`

// Session holds the state of one interactive session. It is independent of
// the terminal so it can be driven line by line.
type Session struct {
	executor *query.Executor
	examples *examples.Registry
	out      io.Writer
	format   render.Format
	timing   bool

	pending []string
}

// NewSession creates a session writing to out.
func NewSession(executor *query.Executor, registry *examples.Registry, out io.Writer, format render.Format) *Session {
	if format == "" {
		format = render.FormatTable
	}
	return &Session{
		executor: executor,
		examples: registry,
		out:      out,
		format:   format,
	}
}

// Prompt returns the prompt for the next line.
func (s *Session) Prompt() string {
	if len(s.pending) > 0 {
		return ps2
	}
	return ps1
}

// Pending returns the query text collected so far.
func (s *Session) Pending() string {
	return strings.Join(s.pending, "\n")
}

// Reset discards pending input.
func (s *Session) Reset() {
	s.pending = nil
}

// Handle processes one input line and reports whether the session should
// end.
func (s *Session) Handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)

	if len(s.pending) == 0 {
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return false
		}
		if cmd, args := splitLine(trimmed); cmd == "help" || cmd == "exit" || cmd == "quit" || strings.HasPrefix(cmd, ":") {
			return s.command(ctx, cmd, strings.TrimSpace(args))
		}
	}

	if trimmed == "" {
		s.flush(ctx)
		return false
	}
	if trimmed == ":clear" {
		s.Reset()
		return false
	}

	terminated := strings.HasSuffix(trimmed, ";")
	s.pending = append(s.pending, strings.TrimSuffix(strings.TrimRight(line, " \t"), ";"))
	if terminated && !query.Incomplete(s.Pending()) {
		s.flush(ctx)
		return false
	}

	// A complete query typed on a single line runs at once.
	if len(s.pending) == 1 && strings.Contains(trimmed, "}") && !query.Incomplete(trimmed) {
		s.flush(ctx)
	}
	return false
}

func (s *Session) flush(ctx context.Context) {
	text := s.Pending()
	s.Reset()
	if strings.TrimSpace(text) == "" {
		return
	}
	s.run(ctx, text)
}

func (s *Session) run(ctx context.Context, text string) {
	start := time.Now()
	result, err := s.executor.Execute(ctx, text)
	if err != nil {
		render.WriteError(s.out, err, s.format)
		return
	}
	if err := render.Write(s.out, result, s.format); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if s.timing {
		fmt.Fprintf(s.out, "Elapsed time: %g ms\n", float64(time.Since(start).Microseconds())/1000)
	}
}

func (s *Session) command(ctx context.Context, cmd, args string) bool {
	switch cmd {
	case "exit", "quit":
		return true

	case "help":
		fmt.Fprint(s.out, helpText)

	case ":examples":
		for _, ex := range s.examples.List() {
			fmt.Fprintf(s.out, "%-20s %s\n", ex.Name, ex.Title)
		}

	case ":show", ":load":
		if args == "" {
			fmt.Fprintf(s.out, "Usage: %s <name>\n", cmd)
			break
		}
		ex, err := s.examples.Get(args)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			break
		}
		if cmd == ":show" {
			fmt.Fprintf(s.out, "# %s\n\n%s\n\n%s", ex.Title, strings.TrimRight(ex.Query, "\n"), ex.Explanation)
			break
		}
		fmt.Fprintf(s.out, "%s\n\n", strings.TrimRight(ex.Query, "\n"))
		s.run(ctx, ex.Query)

	case ":format":
		f, err := render.ParseFormat(args)
		if err != nil || args == "" {
			fmt.Fprintf(s.out, "Format is %s (available: table, json, csv, html)\n", s.format)
			break
		}
		s.format = f
		fmt.Fprintf(s.out, "Format set to %s\n", f)

	case ":timing":
		switch args {
		case "", "on", "true":
			s.timing = true
		case "off", "false":
			s.timing = false
		default:
			fmt.Fprintf(s.out, "Error: cannot parse %q - use on or off\n", args)
			return false
		}
		fmt.Fprintf(s.out, "Timing %s\n", onOff(s.timing))

	case ":clear":
		s.Reset()

	default:
		fmt.Fprintf(s.out, "Unknown command: %q\n", cmd)
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Complete offers command, keyword and example-name completions for line.
func (s *Session) Complete(line string) []string {
	var candidates []string
	if cmd, _ := splitLine(line); cmd == ":load" || cmd == ":show" {
		for _, name := range s.examples.Names() {
			candidates = append(candidates, cmd+" "+name)
		}
	} else {
		candidates = []string{":examples", ":show ", ":load ", ":format ", ":timing ", ":clear", "help", "exit",
			"SELECT", "WHERE", "OPTIONAL", "FILTER", "GROUP BY", "ORDER BY", "LIMIT", "PREFIX"}
	}

	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), strings.ToLower(line)) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// splitLine splits a line into a command and its arguments,
// e.g. ":load all_books" becomes ":load" and " all_books".
func splitLine(line string) (string, string) {
	var command, arguments string

	line = strings.TrimSpace(line)
	if len(line) > 0 {
		command = strings.Fields(line)[0]
		if len(line) > len(command) {
			arguments = line[len(command):]
		}
	}
	return command, arguments
}

// Run reads lines from the terminal until exit or end of input. History is
// read from and written back to historyPath on fs when it is set.
func Run(ctx context.Context, s *Session, fs afero.Fs, historyPath string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(s.Complete)

	if historyPath != "" {
		if err := loadHistory(fs, term, historyPath); err != nil {
			fmt.Fprintf(s.out, "Warning: %v\n", err)
		}
		defer persist(fs, term, historyPath)
	}

	fmt.Fprint(s.out, "Type help for commands.\n")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := term.Prompt(s.Prompt())
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			s.Reset()
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.out)
			return nil
		case err != nil:
			return err
		}

		if strings.TrimSpace(line) != "" {
			term.AppendHistory(line)
		}
		if s.Handle(ctx, line) {
			return nil
		}
	}
}

// history is the part of liner.State that reads and writes history.
type history interface {
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
}

// loadHistory fills h from path. A missing file is not an error.
func loadHistory(fs afero.Fs, h history, path string) error {
	f, err := fs.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not open %q to read history: %w", path, err)
	}
	defer f.Close()

	if _, err := h.ReadHistory(f); err != nil {
		return fmt.Errorf("could not read history from %q: %w", path, err)
	}
	return nil
}

func persist(fs afero.Fs, h history, path string) error {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("could not open %q to write history: %w", path, err)
	}
	defer f.Close()

	if _, err := h.WriteHistory(f); err != nil {
		return fmt.Errorf("could not write history to %q: %w", path, err)
	}
	return nil
}
