package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"example.com/edmdat/internal/common"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// errUsage reports bad command-line arguments; usage has been printed.
var errUsage = errors.New("invalid arguments")

type command struct {
	name string
	args string
	run  func(args []string, stdout io.Writer) error
}

var commands = []command{
	{"decode", "--in <file|glob>... [--flight N] [--no-suffix] [--out-dir D] [--db archive.db] [--continue-on-error] [--metrics]", decodeCmd},
	{"rewrite", "--in <file|glob>... [--out-dir D] [--audit audit.jsonl] [--continue-on-error]", rewriteCmd},
	{"undo", "--in <name-HACK.DAT> --audit <audit.jsonl> --out <restored.DAT>", undoCmd},
	{"info", "--in <file>", infoCmd},
	{"summary", "--in <file> | --from-json <file> [--flight N] [--pdf out.pdf] [--json out.json]", summaryCmd},
	{"gensample", "[--out dir]", gensampleCmd},
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		return
	}
	for _, c := range commands {
		if c.name == os.Args[1] {
			if err := c.run(os.Args[2:], os.Stdout); err != nil {
				if !errors.Is(err, errUsage) && !errors.Is(err, pflag.ErrHelp) {
					fmt.Fprintf(os.Stderr, "%s: %v\n", c.name, err)
				}
				if errors.Is(err, pflag.ErrHelp) {
					return
				}
				os.Exit(1)
			}
			return
		}
	}
	usage(os.Stdout)
	os.Exit(2)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "edmctl %s (built %s) <command> [options]\n\nCommands:\n", version, buildDate)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.args)
	}
	fmt.Fprintf(w, "\nEvery command accepts --config <edmctl.yaml>.\n")
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(os.Stderr)
	return fs
}

// commonFlags are accepted by every command that reads the config file.
type commonFlags struct {
	config string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML configuration file")
}

// setup loads the configuration and starts file logging.
func (c *commonFlags) setup() (config, func() error, error) {
	cfg, err := loadConfig(c.config)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	closeLog, err := setupLogging(cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("setup logging: %w", err)
	}
	return cfg, closeLog, nil
}

// expandInputs resolves file names and glob patterns in order. A pattern
// matching nothing is an error.
func expandInputs(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, "*?[") {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("unable to find file %s", p)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no input files", errUsage)
	}
	return out, nil
}

// runBatch calls fn for every input, stopping at the first failure when
// abort is set.
func runBatch(inputs []string, abort bool, fn func(path string) error) error {
	failed := 0
	for _, in := range inputs {
		if err := fn(in); err != nil {
			if abort {
				return err
			}
			common.Warnf("%v", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(inputs))
	}
	return nil
}
