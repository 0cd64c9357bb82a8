package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/filter"
	"github.com/hpungsan/sift/internal/ops"
	"github.com/hpungsan/sift/internal/report"
	"github.com/hpungsan/sift/internal/store"
	"github.com/hpungsan/sift/internal/web"
)

// maxStdinBytes bounds a value read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(s *store.Store, cfg *config.Config, log *zap.Logger) *cli.App {
	app := &cli.App{
		Name:    "sift",
		Usage:   "String analyzer service",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(s, cfg, log),
			analyzeCmd(),
			createCmd(s),
			getCmd(s),
			listCmd(s),
			searchCmd(s),
			deleteCmd(s),
			reportCmd(s),
			exportCmd(s, cfg),
			importCmd(s, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(s *store.Store, cfg *config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Listen address (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			if err := cfg.Validate(); err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			srv := web.NewServer(s, cfg, log, Version)
			return web.Run(c.Context, srv, log)
		},
	}
}

// analyzeCmd creates the analyze command.
func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Compute properties of a value without storing it",
		ArgsUsage: "[value]",
		Action: func(c *cli.Context) error {
			value, err := valueArg(c)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(ops.Analyze(ops.ValueInput{Value: value}))
		},
	}
}

// createCmd creates the create command.
func createCmd(s *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Analyze and store a value (reads stdin when no argument is given)",
		ArgsUsage: "[value]",
		Action: func(c *cli.Context) error {
			value, err := valueArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Create(c.Context, s, ops.ValueInput{Value: value})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(s *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a stored value",
		ArgsUsage: "[value]",
		Action: func(c *cli.Context) error {
			value, err := valueArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Fetch(c.Context, s, ops.ValueInput{Value: value})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(s *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored values matching every given filter",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "palindrome", Usage: "Filter by is_palindrome (use --palindrome=false for non-palindromes)"},
			&cli.IntFlag{Name: "min-length", Usage: "Minimum length in characters"},
			&cli.IntFlag{Name: "max-length", Usage: "Maximum length in characters"},
			&cli.IntFlag{Name: "word-count", Aliases: []string{"w"}, Usage: "Exact word count"},
			&cli.StringFlag{Name: "contains", Aliases: []string{"c"}, Usage: "A single character the value must contain"},
		},
		Action: func(c *cli.Context) error {
			var set filter.Set
			if c.IsSet("palindrome") {
				set.IsPalindrome = filter.Bool(c.Bool("palindrome"))
			}
			if c.IsSet("min-length") {
				set.MinLength = filter.Int(c.Int("min-length"))
			}
			if c.IsSet("max-length") {
				set.MaxLength = filter.Int(c.Int("max-length"))
			}
			if c.IsSet("word-count") {
				set.WordCount = filter.Int(c.Int("word-count"))
			}
			if c.IsSet("contains") {
				set.ContainsCharacter = filter.String(c.String("contains"))
			}

			output, err := ops.List(c.Context, s, ops.ListInput{Filters: set})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(s *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Filter stored values with a natural-language query",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")

			output, err := ops.Search(c.Context, s, ops.SearchInput{Query: query})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(s *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a stored value",
		ArgsUsage: "[value]",
		Action: func(c *cli.Context) error {
			value, err := valueArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Delete(c.Context, s, ops.ValueInput{Value: value})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(s *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Render a Markdown report for a stored value",
		ArgsUsage: "[value]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "html", Usage: "Render HTML instead of Markdown"},
		},
		Action: func(c *cli.Context) error {
			value, err := valueArg(c)
			if err != nil {
				return outputError(err)
			}

			rec, err := ops.Fetch(c.Context, s, ops.ValueInput{Value: value})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("html") {
				out, err := report.HTML(rec)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				_, err = fmt.Fprint(os.Stdout, out)
				return err
			}

			_, err = fmt.Fprint(os.Stdout, report.Markdown(rec))
			return err
		},
	}
}

// exportCmd creates the export command.
func exportCmd(s *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored values to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.sift/exports/sift-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, s, cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(s *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import values from a JSONL export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			}

			output, err := ops.Import(c.Context, s, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// Helper functions

// valueArg takes the value from the first argument, or from stdin when no
// argument is given. A single trailing newline from stdin is dropped.
func valueArg(c *cli.Context) (string, error) {
	if c.NArg() > 1 {
		return "", errors.NewInvalidRequest("expected one value; quote values that contain spaces")
	}
	if c.NArg() == 1 {
		return c.Args().First(), nil
	}
	if !stdinHasData() {
		return "", errors.NewInvalidValue("value must be given as an argument or piped via stdin")
	}

	data, err := readStdin(maxStdinBytes)
	if err != nil {
		return "", err
	}
	data = strings.TrimSuffix(data, "\n")
	return strings.TrimSuffix(data, "\r"), nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	sErr := errors.From(err)
	if sErr.Code == errors.ErrInternal {
		return cli.Exit(fmt.Sprintf("[%s] %s: %v", sErr.Code, sErr.Message, err), 1)
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads up to limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidValue(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return string(data), nil
}
