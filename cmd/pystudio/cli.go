package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/config"
	"github.com/learnflow/pystudio/internal/errors"
	"github.com/learnflow/pystudio/internal/observability"
	"github.com/learnflow/pystudio/internal/ops"
	"github.com/learnflow/pystudio/internal/remote"
	"github.com/learnflow/pystudio/internal/studio"
	"github.com/learnflow/pystudio/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "pystudio",
		Usage:   "Run Python snippets and ask a tutor, online or offline",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug details to stderr (fallback reasons, requests)"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				observability.SetLevel(slog.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			runCmd(db, cfg),
			askCmd(db, cfg),
			loginCmd(db, cfg),
			registerCmd(db, cfg),
			logoutCmd(db),
			whoamiCmd(db),
			historyCmd(db),
			purgeCmd(db),
			healthCmd(db, cfg),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// runCmd creates the run command.
func runCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run Python code from a file or stdin",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(c *cli.Context) error {
			code, err := readCode(c)
			if err != nil {
				return outputError(err)
			}

			ctx := c.Context
			gateway := newGateway(ctx, db, cfg)
			_, out := studio.RunCode(ctx, gateway, studio.EditorState{Code: code}, cfg.UserID)
			record(ctx, db, activity.KindExecute, code, out)

			if c.Bool("json") {
				return outputJSON(out)
			}
			return outputText(out)
		},
	}
}

// askCmd creates the ask command.
func askCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask the Python tutor a question",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(c *cli.Context) error {
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return outputError(errors.NewInvalidRequest("question is required"))
			}

			ctx := c.Context
			gateway := newGateway(ctx, db, cfg)
			_, out := studio.SendMessage(ctx, gateway, studio.NewChatState(cfg.UserID), question)
			record(ctx, db, activity.KindChat, question, out)

			if c.Bool("json") {
				return outputJSON(out)
			}
			return outputText(out)
		},
	}
}

// loginCmd creates the login command.
func loginCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with email and password, or store a gateway token with --token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
			&cli.StringFlag{Name: "password", Usage: "Account password"},
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Value: "student", Usage: "Role: student|teacher"},
			&cli.StringFlag{Name: "token", Usage: "Bearer token obtained from the LearnFlow web app"},
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Display name to remember with --token"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("token") {
				output, err := ops.SaveToken(c.Context, db, ops.SaveTokenInput{
					Token: c.String("token"),
					User:  c.String("user"),
				})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.Login(c.Context, db, newGateway(c.Context, db, cfg), ops.LoginInput{
				Email:    c.String("email"),
				Password: c.String("password"),
				Role:     c.String("role"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// registerCmd creates the register command.
func registerCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Full name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account email"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "Password (at least 6 characters)"},
			&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Value: "student", Usage: "Role: student|teacher"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Register(c.Context, db, newGateway(c.Context, db, cfg), ops.RegisterInput{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: c.String("password"),
				Role:     c.String("role"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// logoutCmd creates the logout command.
func logoutCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget the stored gateway token",
		Action: func(c *cli.Context) error {
			output, err := ops.Logout(c.Context, db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// whoamiCmd creates the whoami command.
func whoamiCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in account and whether a gateway token is stored",
		Action: func(c *cli.Context) error {
			output, err := ops.Whoami(c.Context, db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent runs and questions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Filter by kind: execute|chat"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHistoryLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, db, ops.HistoryInput{
				Kind:   c.String("kind"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete recorded history",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge records older than N days (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeHistoryInput{}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.PurgeHistory(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// healthCmd creates the health command.
func healthCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the configured gateway is reachable",
		Action: func(c *cli.Context) error {
			gateway := newGateway(c.Context, db, cfg)
			output, err := gateway.Health(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the learner web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			observability.SetOutput(os.Stderr)

			gateway := newGateway(c.Context, db, cfg)
			srv, err := web.NewServer(db, cfg, gateway, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv)
		},
	}
}

// Helper functions

// newGateway builds a gateway client from config and the stored token.
// With no api_url configured the client is offline and every call falls back locally.
func newGateway(ctx context.Context, db *sql.DB, cfg *config.Config) *remote.Client {
	var token string
	if db != nil {
		t, err := ops.Token(ctx, db)
		if err != nil {
			observability.Logger().Warn("could not read stored token", "error", err)
		}
		token = t
	}
	return remote.New(cfg.APIURL, token, cfg.RequestTimeout())
}

// record appends an action to the activity log. Failures are logged, never returned.
func record(ctx context.Context, db *sql.DB, kind activity.Kind, input string, out studio.Outcome) {
	if db == nil {
		return
	}
	if _, err := ops.RecordRun(ctx, db, ops.RecordRunInput{Kind: kind, Input: input, Outcome: out}); err != nil {
		observability.Logger().Warn("failed to record activity", "kind", kind, "error", err)
	}
}

// readCode reads code from the file argument, or stdin when piped.
func readCode(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		data, err := os.ReadFile(c.Args().First())
		if err != nil {
			return "", errors.NewInvalidRequest(fmt.Sprintf("cannot read %s: %v", c.Args().First(), err))
		}
		return string(data), nil
	}

	if !stdinHasData() {
		return "", errors.NewInvalidRequest("pass a file or pipe code via stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return string(data), nil
}

// outputText prints displayed text to stdout and marks simulated results on stderr.
func outputText(out studio.Outcome) error {
	text := out.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := io.WriteString(os.Stdout, text); err != nil {
		return err
	}
	if out.Simulated() {
		fmt.Fprintln(os.Stderr, "(simulated locally: the gateway was not used)")
	}
	return nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := err.(*errors.StudioError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
