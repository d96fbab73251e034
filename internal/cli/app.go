package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aussiebroadwan/studybuddy/pkg/authsdk"
	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
)

// ErrUsage is returned for bad command lines; the usage text has already
// been printed.
var ErrUsage = errors.New("usage error")

const defaultServer = "http://localhost:8080"

// App is one invocation of the command.
type App struct {
	Out    io.Writer
	Err    io.Writer
	In     io.Reader
	Getenv func(string) string
	Log    *slog.Logger

	// Provider overrides the genai provider; tests set it.
	Provider studyai.KeyedProvider

	server string
	model  string

	// The key ring and provider live as long as the App so rotation
	// continues across commands.
	aiOnce   sync.Once
	keys     *studyai.KeyRing
	provider studyai.KeyedProvider
}

// NewApp returns an App wired to the process environment and stdio.
func NewApp(log *slog.Logger) *App {
	return &App{
		Out:    os.Stdout,
		Err:    os.Stderr,
		In:     os.Stdin,
		Getenv: os.Getenv,
		Log:    log,
	}
}

type command struct {
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"notes":      {"generate Markdown study notes", (*App).runNotes},
	"flashcards": {"generate flashcards as JSON", (*App).runFlashcards},
	"quiz":       {"generate a multiple choice quiz as JSON", (*App).runQuiz},
	"chat":       {"ask the study assistant one question", (*App).runChat},
	"signup":     {"create an account", (*App).runSignup},
	"verify":     {"verify an account with the emailed code", (*App).runVerify},
	"login":      {"log in and print the session token", (*App).runLogin},
	"me":         {"show the account behind a session token", (*App).runMe},
	"health":     {"show backend storage status", (*App).runHealth},
}

// Run parses global flags and dispatches to a command.
func (a *App) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("studyai", flag.ContinueOnError)
	fs.SetOutput(a.Err)
	server := fs.String("server", a.env("STUDYBUDDY_URL", defaultServer), "StudyBuddy backend URL")
	model := fs.String("model", a.env("AI_MODEL", studyai.DefaultModel), "model name")
	fs.Usage = func() { a.usage(fs) }

	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	a.server, a.model = *server, *model

	if fs.NArg() == 0 {
		a.usage(fs)
		return ErrUsage
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(a.Err, "unknown command %q\n", fs.Arg(0))
		a.usage(fs)
		return ErrUsage
	}
	return cmd.run(a, ctx, fs.Args()[1:])
}

func (a *App) usage(fs *flag.FlagSet) {
	fmt.Fprintln(a.Err, "usage: studyai [flags] <command> [args]")
	fmt.Fprintln(a.Err, "\ncommands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(a.Err, "  %-11s %s\n", n, commands[n].summary)
	}
	fmt.Fprintln(a.Err, "\nflags:")
	fs.PrintDefaults()
}

func (a *App) env(key, def string) string {
	if v := a.Getenv(key); v != "" {
		return v
	}
	return def
}

// studyClient resolves direct keys from the environment and falls back to
// the backend proxy.
func (a *App) studyClient() *studyai.Client {
	a.aiOnce.Do(func() {
		a.keys = studyai.NewKeyRing(studyai.CollectKeys(a.Getenv, studyai.ClientKeyVars...)...)
		a.provider = a.Provider
		if a.provider == nil {
			a.provider = studyai.NewGenAIProvider()
		}
	})
	r := &studyai.Resolver{
		Keys:     a.keys,
		Provider: a.provider,
		Proxy:    studyai.NewProxyTransport(a.server),
	}
	if r.UsesProxy() {
		a.Log.Debug("no GEMINI_API_KEY set, using backend proxy", "server", a.server)
	}

	c := studyai.NewClient(r, a.Log)
	c.Model = a.model
	return c
}

func (a *App) accountClient() *authsdk.SDKClient {
	return authsdk.NewSDKClient(a.server)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) subFlags(name, argsUsage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Err)
	fs.Usage = func() {
		fmt.Fprintf(a.Err, "usage: studyai %s [flags] %s\n", name, argsUsage)
		fs.PrintDefaults()
	}
	return fs
}

func requireArgs(fs *flag.FlagSet) error {
	if fs.NArg() == 0 {
		fs.Usage()
		return ErrUsage
	}
	return nil
}

func requireFlags(fs *flag.FlagSet, vals map[string]string) error {
	var missing []string
	for name, v := range vals {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	fmt.Fprintf(fs.Output(), "missing %s\n", strings.Join(missing, ", "))
	fs.Usage()
	return ErrUsage
}
