// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jmcdonald/unpin/internal/adapters/tuisvc"
	"github.com/jmcdonald/unpin/internal/config"
	"github.com/jmcdonald/unpin/internal/journal"
	"github.com/jmcdonald/unpin/internal/logging"
	"github.com/jmcdonald/unpin/internal/patch"
	"github.com/jmcdonald/unpin/internal/ports"
	"github.com/jmcdonald/unpin/internal/tui"
	"github.com/spf13/afero"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() (string, error)
	DefaultConfig() (*config.Config, error)
}

// PatchService provides read and write operations on targets for the CLI.
type PatchService interface {
	Kind(target string) ports.Kind
	List(target string) ([]string, error)
	Cat(target, path string) (string, error)
	Write(target, path, text string, dryRun bool) (*patch.Result, error)
	Replace(target, path, old, repl string, count int, dryRun bool) (*patch.Result, error)
	History(target string) ([]journal.Entry, error)
	Last(target string) (*journal.Entry, error)
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	In      io.Reader // Standard input, read by "write -"
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// FS reads input files for "write" (defaults to the OS filesystem)
	FS afero.Fs

	// Injectable dependencies (nil means use defaults)
	ConfigSvc ConfigService
	PatchSvc  PatchService

	// Browse runs the interactive browser (defaults to tui.Run)
	Browse func(target string, svc ports.BrowseService) error

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		In:      os.Stdin,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		FS:      afero.NewOsFs(),
		Browse:  tui.Run,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	exitCode := 0
	return &CLI{
		Out:     out,
		Err:     errOut,
		In:      strings.NewReader(""),
		Version: "test",
		Args:    args,
		Exit:    func(code int) { exitCode = code; _ = exitCode },
		FS:      afero.NewMemMapFs(),
		Browse:  func(string, ports.BrowseService) error { return nil },
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error)          { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error          { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() (string, error)            { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() (*config.Config, error) { return config.DefaultConfig() }

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) patchSvc(cfg *config.Config) (PatchService, error) {
	if c.PatchSvc != nil {
		return c.PatchSvc, nil
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return patch.NewDefaultService(cfg, log), nil
}

// setup loads the config and the patch service, reporting failures.
func (c *CLI) setup() (PatchService, bool) {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return nil, false
	}
	svc, err := c.patchSvc(cfg)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return nil, false
	}
	return svc, true
}

func (c *CLI) fail(err error) {
	fmt.Fprintf(c.Err, "Error: %v\n", err)
	c.Exit(1)
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		fmt.Fprintln(c.Out, "No command specified. Use 'unpin help' for usage.")
		return
	}

	switch c.Args[1] {
	case "ls", "list":
		c.ListPaths()
	case "cat":
		c.CatFile()
	case "write":
		c.WriteFile()
	case "replace":
		c.ReplaceText()
	case "history":
		c.ShowHistory()
	case "init":
		c.InitConfig()
	case "ui", "tui":
		c.RunUI()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "unpin v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.Args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `unpin - Patch files inside directories and zip archives

Usage:
  unpin ls <target>                        List every path in a directory or archive
  unpin cat <target> <path>                Print the text of one file
  unpin write <target> <path> [file|-] [--dry-run]
                                           Replace a file's text (stdin when file is - or omitted)
  unpin replace <target> <path> <old> <new> [--count=N] [--dry-run]
                                           Substitute text inside one file
  unpin history [target] [--last]          Show journaled writes (only the newest with --last)
  unpin ui <target>                        Browse a target interactively
  unpin init                               Create default config file
  unpin version, -v                        Show version
  unpin help, -h                           Show this help

Targets that are directories are edited in place. Anything else is
treated as a zip archive, rebuilt next to the original and swapped in.

Config: ~/.unpin/config.yaml`)
}

// splitArgs separates positional arguments from --flags. Everything after
// a literal "--" is positional.
func splitArgs(args []string) (pos []string, flags map[string]string) {
	flags = make(map[string]string)
	for i, arg := range args {
		if arg == "--" {
			pos = append(pos, args[i+1:]...)
			break
		}
		if strings.HasPrefix(arg, "--") {
			name, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
			flags[name] = value
			continue
		}
		pos = append(pos, arg)
	}
	return pos, flags
}

func absTarget(target string) string {
	abs, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	return abs
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	cfg, err := svc.DefaultConfig()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if err := svc.Save(cfg); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	path, err := svc.ConfigPath()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
}

// ListPaths prints every path under a target.
func (c *CLI) ListPaths() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: unpin ls <target>")
		c.Exit(1)
		return
	}
	svc, ok := c.setup()
	if !ok {
		return
	}

	paths, err := svc.List(absTarget(c.Args[2]))
	if err != nil {
		c.fail(err)
		return
	}
	for _, p := range paths {
		fmt.Fprintln(c.Out, p)
	}
}

// CatFile prints the text of one file inside a target.
func (c *CLI) CatFile() {
	if len(c.Args) < 4 {
		fmt.Fprintln(c.Out, "Usage: unpin cat <target> <path>")
		c.Exit(1)
		return
	}
	svc, ok := c.setup()
	if !ok {
		return
	}

	text, err := svc.Cat(absTarget(c.Args[2]), c.Args[3])
	if err != nil {
		c.fail(err)
		return
	}
	fmt.Fprint(c.Out, text)
}

// WriteFile replaces the text of one file inside a target.
func (c *CLI) WriteFile() {
	pos, flags := splitArgs(c.Args[2:])
	if len(pos) < 2 || len(pos) > 3 {
		fmt.Fprintln(c.Out, "Usage: unpin write <target> <path> [file|-] [--dry-run]")
		c.Exit(1)
		return
	}
	_, dryRun := flags["dry-run"]

	var (
		data []byte
		err  error
	)
	if len(pos) == 3 && pos[2] != "-" {
		data, err = afero.ReadFile(c.FS, pos[2])
	} else {
		data, err = io.ReadAll(c.In)
	}
	if err != nil {
		fmt.Fprintf(c.Err, "Error reading input: %v\n", err)
		c.Exit(1)
		return
	}

	svc, ok := c.setup()
	if !ok {
		return
	}
	res, err := svc.Write(absTarget(pos[0]), pos[1], string(data), dryRun)
	if res != nil {
		// A journal failure still leaves the write applied.
		c.printResult(res, dryRun)
	}
	if err != nil {
		c.fail(err)
	}
}

// ReplaceText substitutes text inside one file of a target.
func (c *CLI) ReplaceText() {
	pos, flags := splitArgs(c.Args[2:])
	if len(pos) != 4 {
		fmt.Fprintln(c.Out, "Usage: unpin replace <target> <path> <old> <new> [--count=N] [--dry-run]")
		c.Exit(1)
		return
	}
	_, dryRun := flags["dry-run"]

	count := 0
	if v, ok := flags["count"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fmt.Fprintf(c.Err, "Invalid --count: %q\n", v)
			c.Exit(1)
			return
		}
		count = n
	}

	svc, ok := c.setup()
	if !ok {
		return
	}
	res, err := svc.Replace(absTarget(pos[0]), pos[1], pos[2], pos[3], count, dryRun)
	if res != nil {
		// A journal failure still leaves the write applied.
		c.printResult(res, dryRun)
	}
	if err != nil {
		c.fail(err)
	}
}

func (c *CLI) printResult(res *patch.Result, dryRun bool) {
	if !res.Changed {
		fmt.Fprintf(c.Out, "%s %s unchanged\n", c.gray("-"), res.Pair)
		return
	}

	for _, l := range res.Diff {
		switch l.Type {
		case '+':
			fmt.Fprintln(c.Out, c.green(fmt.Sprintf("  + %4d | %s", l.LineNum2, l.Content)))
		case '-':
			fmt.Fprintln(c.Out, c.red(fmt.Sprintf("  - %4d | %s", l.LineNum1, l.Content)))
		}
	}
	if len(res.Diff) > 0 {
		fmt.Fprintln(c.Out)
	}

	added, deleted := patch.DiffStats(res.Diff)
	stats := fmt.Sprintf("+%d -%d", added, deleted)
	verb := "Updated"
	if res.Created {
		verb = "Created"
	}
	if dryRun {
		fmt.Fprintf(c.Out, "%s Dry run: %s %s (%s) %s\n",
			c.yellow("!"), strings.ToLower(verb), res.Pair, res.Kind, c.gray(stats))
		return
	}
	fmt.Fprintf(c.Out, "%s %s %s (%s) %s\n",
		c.green("*"), verb, res.Pair, res.Kind, c.gray(stats))
}

// ShowHistory lists journaled writes, newest last.
func (c *CLI) ShowHistory() {
	svc, ok := c.setup()
	if !ok {
		return
	}

	pos, flags := splitArgs(c.Args[2:])
	target := ""
	if len(pos) > 0 {
		target = absTarget(pos[0])
	}

	var entries []journal.Entry
	if _, last := flags["last"]; last {
		e, err := svc.Last(target)
		if err != nil {
			c.fail(err)
			return
		}
		if e != nil {
			entries = append(entries, *e)
		}
	} else {
		var err error
		entries, err = svc.History(target)
		if err != nil {
			c.fail(err)
			return
		}
	}

	if len(entries) == 0 {
		if target == "" {
			fmt.Fprintln(c.Out, "No writes recorded")
		} else {
			fmt.Fprintf(c.Out, "No writes recorded for %s\n", target)
		}
		return
	}

	fmt.Fprintf(c.Out, "  %-8s %-19s %-9s %10s %-8s %s\n", "ID", "WHEN", "KIND", "SIZE", "SHA256", "FILE")
	fmt.Fprintf(c.Out, "  %-8s %-19s %-9s %10s %-8s %s\n", "--", "----", "----", "----", "------", "----")
	for _, e := range entries {
		id, sha := short(e.ID), short(e.AfterSHA256)
		file := ports.PathsPair{Root: e.Root, Internal: e.Path}.String()
		if e.Created {
			file += " " + c.cyan("(new)")
		}
		fmt.Fprintf(c.Out, "  %-8s %-19s %-9s %10s %-8s %s\n", id,
			e.At.Local().Format("2006-01-02 15:04:05"), e.Kind, formatSize(int64(e.AfterBytes)), sha, file)
	}
}

// RunUI launches the interactive browser for a target.
func (c *CLI) RunUI() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: unpin ui <target>")
		c.Exit(1)
		return
	}
	svc, ok := c.setup()
	if !ok {
		return
	}
	if err := c.Browse(absTarget(c.Args[2]), tuisvc.New(svc)); err != nil {
		c.fail(err)
	}
}

func short(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// formatSize formats bytes as human-readable
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
