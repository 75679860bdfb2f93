// Package cli structures the typebus command line as a set of sub-commands with posix style flags.
package cli

import (
	"context"
	"errors"
	"fmt"
	flag "github.com/spf13/pflag"
	"io"
	"os"
	"slices"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	HelpPatterns      = []string{"--help", "-h", "help"} // HelpPatterns trigger usage output from a [CommandSet].
)

// CommandFunc is run by a [Command] after its flags are parsed.
type CommandFunc = func(ctx context.Context, flags *flag.FlagSet, printer *Printer) error

// Command is a sub-command of a [CommandSet].
type Command struct {
	key        string
	shortUsage string
	usage      string
	aliases    []string
	flags      *flag.FlagSet
	exec       CommandFunc
	printer    *Printer
}

// Does sets the function that runs this [Command].
func (c *Command) Does(commandFunc CommandFunc) *Command {
	if commandFunc != nil {
		c.exec = commandFunc
	}
	return c
}

// Flags returns the flags for this [Command], so they can be defined before it runs.
func (c *Command) Flags() *flag.FlagSet {
	return c.flags
}

// Usage sets a longer description that is printed along with the flag usages when help is requested.
func (c *Command) Usage(format string, args ...any) *Command {
	c.usage = fmt.Sprintf(format, args...)
	return c
}

func (c *Command) printUsage(parent string) {
	var buf strings.Builder
	buf.WriteString(c.shortUsage + "\n")
	if len(c.usage) > 0 {
		buf.WriteString("\nUSAGE:\n" + strings.TrimSpace(parent+" "+c.key) + " " + strings.TrimSuffix(c.usage, "\n") + "\n")
	}
	buf.WriteString("\nFLAGS\n")
	buf.WriteString(c.flags.FlagUsages())
	c.printer.Print(buf.String())
}

func (c *Command) run(ctx context.Context, parent string, args []string) error {
	if err := c.flags.Parse(args); err != nil {
		return NewUsageError("%w", err)
	}
	if help, _ := c.flags.GetBool("help"); help {
		c.printUsage(parent)
		return nil
	}
	if c.exec == nil {
		c.printUsage(parent)
		return nil
	}
	return c.exec(ctx, c.flags, c.printer)
}

// CommandSet is the root of a CLI, and dispatches to its commands by name or alias.
type CommandSet struct {
	name     string
	commands map[string]*Command
	aliases  map[string]*Command
	printer  *Printer
}

// NewCommandSet creates a [CommandSet] for a CLI invoked as name.
func NewCommandSet(name string) *CommandSet {
	return &CommandSet{
		name:     name,
		commands: map[string]*Command{},
		aliases:  map[string]*Command{},
		printer:  NewPrinter(),
	}
}

// Printer returns the [Printer] shared by every command in this set.
func (s *CommandSet) Printer() *Printer {
	return s.printer
}

// AddCommand adds a sub-command, matched without regard to case.
func (s *CommandSet) AddCommand(key, shortUsage string, aliases ...string) *Command {
	key = strings.ToLower(strings.TrimSpace(key))
	fs := flag.NewFlagSet(key, flag.ContinueOnError)
	fs.BoolP("help", "h", false, "Prints this usage information")
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	cmd := &Command{
		key:        key,
		shortUsage: shortUsage,
		flags:      fs,
		printer:    s.printer,
	}
	s.commands[key] = cmd
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if len(alias) == 0 {
			continue
		}
		s.aliases[alias] = cmd
		cmd.aliases = append(cmd.aliases, alias)
	}
	slices.Sort(cmd.aliases)
	return cmd
}

// Exec runs the command named by the first argument, passing it the rest.
// Usage is printed if the first argument is one of [HelpPatterns], or if a [UsageError] is returned.
func (s *CommandSet) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.PrintUsage()
		return fmt.Errorf("%w: no arguments", ErrUnknownCommand)
	}
	if slices.Contains(HelpPatterns, args[0]) {
		s.PrintUsage()
		return nil
	}
	key := strings.ToLower(args[0])
	cmd, ok := s.commands[key]
	if !ok {
		if cmd, ok = s.aliases[key]; !ok {
			s.PrintUsage()
			return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
		}
	}
	err := cmd.run(ctx, s.name, args[1:])
	if errors.Is(err, &UsageError{}) {
		cmd.printUsage(s.name)
	}
	return err
}

// PrintUsage prints the name of every command in the set, sorted alphabetically.
func (s *CommandSet) PrintUsage() {
	s.printer.Printf("USAGE:\n%s COMMAND [FLAGS...]\n\nCOMMANDS\n%s", s.name, s.CommandUsages())
}

// CommandUsages returns a line per command with its aliases and short usage.
func (s *CommandSet) CommandUsages() string {
	var (
		keys   = make([]string, 0, len(s.commands))
		names  = map[string]string{}
		maxLen int
		buf    strings.Builder
	)
	for key, cmd := range s.commands {
		keys = append(keys, key)
		names[key] = strings.Join(append([]string{key}, cmd.aliases...), ", ")
		maxLen = max(maxLen, len(names[key]))
	}
	slices.Sort(keys)
	for _, key := range keys {
		buf.WriteString(fmt.Sprintf("  %-*s\t%s\n", maxLen, names[key], s.commands[key].shortUsage))
	}
	return buf.String()
}

// Printer writes user-visible output, which goes to STDERR unless redirected.
type Printer struct {
	out io.Writer
}

func NewPrinter() *Printer {
	return &Printer{out: os.Stderr}
}

func (p *Printer) Redirect(writer io.Writer) {
	p.out = writer
}

func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) Print(msg ...any) {
	_, _ = fmt.Fprint(p.out, msg...)
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) Println(msg ...any) {
	_, _ = fmt.Fprintln(p.out, msg...)
}

// UsageError signals that the command was invoked incorrectly, and its usage should be shown.
type UsageError struct {
	wrapped error
}

func (e *UsageError) Error() string {
	if e.wrapped == nil {
		return "usage error"
	}
	return "usage error: " + e.wrapped.Error()
}

func (e *UsageError) Is(err error) bool {
	_, ok := err.(*UsageError)
	return ok
}

func (e *UsageError) Unwrap() error {
	return e.wrapped
}

// NewUsageError creates a [UsageError] wrapping an error created with [fmt.Errorf].
func NewUsageError(format string, args ...any) error {
	return &UsageError{wrapped: fmt.Errorf(format, args...)}
}
