package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"fortio.org/log"
	"github.com/peterh/liner"

	giffi "github.com/miklaskarjalainen/GiffiScript"
)

const (
	appName         = "giffi"
	historyFile     = ".giffi_history"
	promptMain      = "==> "
	promptCont      = "... "
	defaultMaxDepth = 10000
)

var (
	banner   = fmt.Sprintf("GiffiScript %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.", giffi.Version)
	helpText = `
REPL commands:
  :quit    Exit the REPL
  :dump    Show the interpreter state captured at the last error
  :funcs   List defined functions
  :help    Show this text
`
)

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func blue(s string) string { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	os.Exit(dispatch(os.Args[1], os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
}

func dispatch(cmd string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	switch cmd {
	case "run":
		return cmdRun(args, stdin, stdout, stderr)
	case "repl":
		return cmdRepl(args, stdout, stderr)
	case "tokens":
		return cmdTokens(args, stdout, stderr)
	case "compile":
		return cmdCompile(args, stdout, stderr)
	case "fetch":
		return cmdFetch(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", appName, giffi.Version, giffi.BuildDate)
		return 0
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "%s: unknown command %q\n", appName, cmd)
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `GiffiScript %s (built %s)

Usage:
  %s run [flags] [file.giffi]      Run a script (default: the manifest's main).
  %s repl [flags]                  Start the REPL.
  %s tokens <file.giffi>           Print the token stream.
  %s compile <file.giffi>          Print the compiled instructions.
  %s fetch [-manifest f] [-update] Check out the manifest's git sources.
  %s version                       Print the compiled version.

Flags for run and repl:
  -loglevel <level>      debug, verbose, info, warning, error, critical, fatal
  -manifest <giffi.yml>  project manifest (default: searched upwards)
  -no-manifest           ignore any giffi.yml
  -max-depth <n>         call/block nesting limit (default %d)
  -block-local-return    'return' only leaves the block it is written in

`, giffi.Version, giffi.BuildDate, appName, appName, appName, appName, appName, appName, defaultMaxDepth)
}

// -----------------------------------------------------------------------------
// shared flags
// -----------------------------------------------------------------------------

type runFlags struct {
	logLevel         string
	manifest         string
	noManifest       bool
	maxDepth         int
	blockLocalReturn bool
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.logLevel, "loglevel", "", "log level")
	fs.StringVar(&f.manifest, "manifest", "", "path to "+giffi.ManifestFile)
	fs.BoolVar(&f.noManifest, "no-manifest", false, "ignore any "+giffi.ManifestFile)
	fs.IntVar(&f.maxDepth, "max-depth", 0, "call/block nesting limit")
	fs.BoolVar(&f.blockLocalReturn, "block-local-return", false, "legacy return semantics")
}

// loadManifest returns the explicit manifest, or the one found above start.
func (f *runFlags) loadManifest(start string) (*giffi.Manifest, error) {
	if f.manifest != "" {
		return giffi.LoadManifest(f.manifest)
	}
	if f.noManifest {
		return nil, nil
	}
	path, ok := giffi.FindManifest(start)
	if !ok {
		return nil, nil
	}
	return giffi.LoadManifest(path)
}

// options builds interpreter options. Later options win: defaults, then the
// manifest, then explicit flags.
func (f *runFlags) options(m *giffi.Manifest, dir string, stdin io.Reader, stdout io.Writer) ([]giffi.Option, error) {
	if m != nil && m.LogLevel != "" {
		if err := setLogLevel(m.LogLevel); err != nil {
			return nil, err
		}
	}
	if f.logLevel != "" {
		if err := setLogLevel(f.logLevel); err != nil {
			return nil, err
		}
	}
	if f.maxDepth < 0 {
		return nil, fmt.Errorf("-max-depth must not be negative")
	}

	opts := []giffi.Option{
		giffi.WithStdin(stdin),
		giffi.WithStdout(stdout),
		giffi.WithMaxDepth(defaultMaxDepth),
	}
	if m != nil {
		opts = append(opts, m.Options()...)
	} else {
		opts = append(opts, giffi.WithReader(giffi.NewDirReader(dir)))
	}
	if f.maxDepth > 0 {
		opts = append(opts, giffi.WithMaxDepth(f.maxDepth))
	}
	if f.blockLocalReturn {
		opts = append(opts, giffi.WithBlockLocalReturn(true))
	}
	return opts, nil
}

func setLogLevel(s string) error {
	lvl, err := log.ValidateLevel(s)
	if err != nil {
		return err
	}
	log.SetLogLevel(lvl)
	return nil
}

// describe renders err with a caret snippet when the failing source can be
// found: the entry source itself, or an imported file on disk.
func describe(err error, name, src string) string {
	var e *giffi.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Name == "" || e.Name == name {
		return giffi.WrapErrorWithSource(err, name, src).Error()
	}
	if b, rerr := os.ReadFile(e.Name); rerr == nil {
		return giffi.WrapErrorWithSource(err, e.Name, string(b)).Error()
	}
	return err.Error()
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var rf runFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	file := fs.Arg(0)
	start := "."
	if file != "" {
		start = filepath.Dir(file)
	}
	m, err := rf.loadManifest(start)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	if file == "" && m != nil {
		file = m.MainPath()
	}
	if file == "" {
		fmt.Fprintf(stderr, "usage: %s run [flags] <file.giffi>\n", appName)
		return 2
	}

	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(stderr, "%s: cannot read %s: %v\n", appName, file, err)
		return 1
	}

	opts, err := rf.options(m, filepath.Dir(file), stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 2
	}
	ip := giffi.NewInterpreter(opts...)
	log.Debugf("running %s", file)
	if _, err := ip.RunSource(file, string(src)); err != nil {
		fmt.Fprintln(stderr, red(describe(err, file, string(src))))
		ip.Dump(stderr, err)
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

// replSession evaluates complete REPL entries against one interpreter.
type replSession struct {
	ip       *giffi.Interpreter
	out      io.Writer
	errw     io.Writer
	lastDump string
}

// eval handles one entry. It returns false when the user asked to quit.
func (s *replSession) eval(code string) bool {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, ":") {
		switch strings.ToLower(trimmed) {
		case ":quit", ":q":
			return false
		case ":help":
			fmt.Fprint(s.out, helpText)
		case ":dump":
			if s.lastDump == "" {
				fmt.Fprintln(s.out, "no error so far")
			} else {
				fmt.Fprint(s.out, s.lastDump)
			}
		case ":funcs":
			fmt.Fprintln(s.out, strings.Join(s.ip.Functions(), " "))
		default:
			fmt.Fprintln(s.out, "unknown command. Type :help for a list.")
		}
		return true
	}

	v, err := s.ip.RunLine(code)
	if err != nil {
		fmt.Fprintln(s.errw, red(describe(err, "<repl>", code)))
		var b bytes.Buffer
		s.ip.Dump(&b, err)
		s.lastDump = b.String()
		s.ip.Recover()
		return true
	}
	if v.Tag != giffi.VTNull {
		fmt.Fprintln(s.out, blue(giffi.FormatValue(v)))
	}
	return true
}

func cmdRepl(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var rf runFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	m, err := rf.loadManifest(".")
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	opts, err := rf.options(m, ".", os.Stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 2
	}
	session := &replSession{ip: giffi.NewInterpreter(opts...), out: stdout, errw: stderr}

	fmt.Fprintln(stdout, banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(stdout)
			return 0
		}
		if !session.eval(code) {
			return 0
		}
		if strings.TrimSpace(code) != "" {
			ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		}
	}
}

// readByParseProbe keeps reading continuation lines while the accumulated
// input only fails because it is incomplete.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !needsMore(src) {
			return src, true
		}
	}
}

func needsMore(src string) bool {
	if strings.HasPrefix(strings.TrimSpace(src), ":") {
		return false
	}
	_, err := giffi.ParseSource(src)
	return err != nil && giffi.IsIncomplete(err)
}

// -----------------------------------------------------------------------------
// tokens / compile
// -----------------------------------------------------------------------------

func readSourceArg(cmd string, args []string, stderr io.Writer) (string, string, bool) {
	if len(args) != 1 {
		fmt.Fprintf(stderr, "usage: %s %s <file.giffi>\n", appName, cmd)
		return "", "", false
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "%s: cannot read %s: %v\n", appName, args[0], err)
		return "", "", false
	}
	return args[0], string(b), true
}

func cmdTokens(args []string, stdout, stderr io.Writer) int {
	name, src, ok := readSourceArg("tokens", args, stderr)
	if !ok {
		return 2
	}
	toks, err := giffi.NewLexer(src).KeepNewlines().Scan()
	if err != nil {
		fmt.Fprintln(stderr, red(describe(err, name, src)))
		return 1
	}
	for _, t := range toks {
		fmt.Fprintf(stdout, "%4d:%-4d %s\n", t.Line, t.Col, t)
	}
	return 0
}

func cmdCompile(args []string, stdout, stderr io.Writer) int {
	name, src, ok := readSourceArg("compile", args, stderr)
	if !ok {
		return 2
	}
	instrs, err := giffi.ParseSource(src)
	if err != nil {
		fmt.Fprintln(stderr, red(describe(err, name, src)))
		return 1
	}
	fmt.Fprint(stdout, giffi.FormatInstructions(instrs))
	return 0
}

// -----------------------------------------------------------------------------
// fetch
// -----------------------------------------------------------------------------

func cmdFetch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	manifestPath := fs.String("manifest", "", "path to "+giffi.ManifestFile)
	update := fs.Bool("update", false, "re-fetch branch checkouts")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := *manifestPath
	if path == "" {
		found, ok := giffi.FindManifest(".")
		if !ok {
			fmt.Fprintf(stderr, "%s: no %s found\n", appName, giffi.ManifestFile)
			return 1
		}
		path = found
	}
	m, err := giffi.LoadManifest(path)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	if len(m.Sources) == 0 {
		fmt.Fprintln(stdout, "no git sources declared")
		return 0
	}

	g := giffi.NewGitReader(m.CachePath(), m.Sources)
	g.Update = *update
	dirs, err := g.FetchAll()
	for i, dir := range dirs {
		fmt.Fprintf(stdout, "%s -> %s\n", m.SourceNames()[i], dir)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	return 0
}
