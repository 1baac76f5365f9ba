// kanatype is the command-line front end for the kana typing engine.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/riffluv/manaby-typing-sub000/internal/config"
	"github.com/riffluv/manaby-typing-sub000/internal/logging"
	"github.com/riffluv/manaby-typing-sub000/internal/phrases"
	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the streams and global options of one invocation.
type cli struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	log        *logging.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kanatype", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 1
	}

	c := &cli{
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		configPath: *configPath,
	}
	rest := fs.Args()[1:]

	switch cmd := fs.Arg(0); cmd {
	case "compile":
		if len(rest) < 1 {
			fmt.Fprintln(stderr, "Usage: kanatype compile <phonetic>")
			return 1
		}
		return c.cmdCompile(strings.Join(rest, ""))
	case "play":
		return c.cmdPlay(rest)
	case "rank":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: kanatype rank <kpm>")
			return 1
		}
		return c.cmdRank(rest[0])
	case "check":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: kanatype check <phrases-file>")
			return 1
		}
		return c.cmdCheck(rest[0])
	case "config":
		return c.cmdConfig(rest)
	case "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		usage(stderr)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `kanatype - Kana typing practice engine

Usage: kanatype [options] <command> [args]

Commands:
  compile <phonetic>      Show the typing units and spellings of a phrase
  play [flags]            Type phrases from stdin or a file
  rank <kpm>              Print the rank label for a speed
  check <phrases-file>    Validate a phrase set
  config init [path]      Write a default config file
  config show             Print the effective configuration
  help                    Show this help message

Options:
  -config <path>  Path to config file (default: platform config dir)`)
}

// loadConfig reads the config, falling back to a discovered file when no
// -config flag was given.
func (c *cli) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the process default.
func (c *cli) setupLogging(cfg *config.Config) error {
	lc, err := cfg.LoggerConfig()
	if err != nil {
		return err
	}
	l, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	logging.SetDefault(l)
	c.log = l
	return nil
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "Error: %v\n", err)
	return 1
}

func (c *cli) cmdCompile(phonetic string) int {
	cfg, err := c.loadConfig()
	if err != nil {
		return c.fail(err)
	}

	compiled, err := romaji.Compile(phonetic, cfg.Table())
	if err != nil {
		return c.fail(err)
	}

	fmt.Fprintf(c.stdout, "phonetic: %s\n", compiled.Phonetic)
	fmt.Fprintf(c.stdout, "romaji:   %s\n\n", compiled.Display)

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKANA\tOFFSET\tSPELLINGS")
	for i, u := range compiled.Units {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i, u.Source, u.DisplayOffset, strings.Join(u.Candidates, " "))
	}
	tw.Flush()
	return 0
}

func (c *cli) cmdRank(arg string) int {
	kpm, err := strconv.Atoi(arg)
	if err != nil {
		return c.fail(fmt.Errorf("invalid kpm %q: %w", arg, err))
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, cfg.RankTable().Rank(kpm))
	return 0
}

func (c *cli) cmdCheck(path string) int {
	cfg, err := c.loadConfig()
	if err != nil {
		return c.fail(err)
	}

	set, err := phrases.Load(path)
	if err != nil {
		return c.fail(err)
	}
	if _, err := set.Compile(cfg.Table()); err != nil {
		return c.fail(err)
	}

	fmt.Fprintf(c.stdout, "ok: %s (%d phrases)\n", set.Name, set.Len())
	return 0
}

func (c *cli) cmdConfig(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "Usage: kanatype config <init|show>")
		return 1
	}

	switch args[0] {
	case "init":
		path := config.ConfigPath()
		if len(args) > 1 {
			path = args[1]
		}
		_, created, err := config.LoadOrCreate(path)
		if err != nil {
			return c.fail(err)
		}
		if !created {
			fmt.Fprintf(c.stdout, "exists: %s\n", path)
			return 0
		}
		fmt.Fprintf(c.stdout, "created: %s\n", path)
		return 0

	case "show":
		cfg, err := c.loadConfig()
		if err != nil {
			return c.fail(err)
		}
		data, err := config.Encode(cfg, ".toml")
		if err != nil {
			return c.fail(err)
		}
		c.stdout.Write(data)
		for _, w := range config.Lint(cfg).Warnings() {
			fmt.Fprintf(c.stderr, "warning: %v\n", &w)
		}
		return 0

	default:
		return c.fail(errors.New("unknown config command: " + args[0]))
	}
}
