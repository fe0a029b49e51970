package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"TokenFSM/internal/analysis"
	"TokenFSM/internal/automaton"
	"TokenFSM/internal/config"
	"TokenFSM/internal/storage"
	"TokenFSM/internal/tokenclass"
)

const (
	flagModel    = "model"
	flagOut      = "out"
	flagPatterns = "patterns"
	flagAnalyzer = "analyzer"
	flagLower    = "lower"
	flagHints    = "hints"
	flagJSON     = "json"
	flagCount    = "count"
	flagLogLevel = "log-level"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:        "fsmctl",
		Usage:       "fsmctl [command]",
		Description: "Train, inspect and run token-sequence automaton models.",
		Version:     Version,
		Writer:      stdout,
		ErrWriter:   stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "warn",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{config.EnvLogLevel},
			},
		},
		Commands: []*cli.Command{
			compileCommand(),
			emptyCommand(),
			learnCommand(),
			inspectCommand(),
			recognizeCommand(),
		},
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := config.LogConfig{Level: c.String(flagLogLevel)}.SlogLevel()
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:        "compile",
		Usage:       "fsmctl compile PATTERN",
		Description: "Print every token sequence a pattern expands to, one per line",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: flagCount, Usage: "print only the number of sequences"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("compile takes exactly one pattern")
			}
			text := c.Args().First()
			if c.Bool(flagCount) {
				fmt.Fprintln(c.App.Writer, automaton.ExpansionSize(text))
				return nil
			}
			for _, seq := range automaton.CompilePattern(text) {
				fmt.Fprintln(c.App.Writer, strings.Join(seq, " "))
			}
			return nil
		},
	}
}

func emptyCommand() *cli.Command {
	return &cli.Command{
		Name:        "empty",
		Usage:       "fsmctl empty",
		Description: "Print the model of an untrained automaton",
		Action: func(c *cli.Context) error {
			a := automaton.New(automaton.Options[string]{Logger: newLogger(c)})
			fmt.Fprintln(c.App.Writer, a.EmptyModelJSON())
			return nil
		},
	}
}

func learnCommand() *cli.Command {
	return &cli.Command{
		Name:        "learn",
		Usage:       "fsmctl learn --patterns FILE [--model FILE] [--out FILE]",
		Description: "Train a model from a JSON array of patterns",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: flagPatterns, Aliases: []string{"p"}, Required: true, Usage: "JSON pattern file, repeatable"},
			&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Usage: "model to extend"},
			&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "output file, stdout when empty"},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			a, err := loadModel(c.String(flagModel), logger)
			if err != nil {
				return err
			}

			var patterns []automaton.Pattern[string]
			for _, path := range c.StringSlice(flagPatterns) {
				ps, err := readPatterns(path)
				if err != nil {
					return err
				}
				patterns = append(patterns, ps...)
			}
			n, err := a.Learn(patterns)
			if err != nil {
				return err
			}

			model, err := a.ExportJSON()
			if err != nil {
				return err
			}
			logger.Info("model trained", "patterns", len(patterns), "names", n, "states", a.LastUsedState())

			out := c.String(flagOut)
			if out == "" {
				fmt.Fprintln(c.App.Writer, model)
				return nil
			}
			return storage.AtomicWriteFile(out, []byte(model))
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:        "inspect",
		Usage:       "fsmctl inspect --model FILE",
		Description: "Print a readable dump of a model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			a, err := loadModel(c.String(flagModel), newLogger(c))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "names: %s\n", strings.Join(a.Names(), ", "))
			a.PrintModel(c.App.Writer)
			return nil
		},
	}
}

type recognized struct {
	Name    string `json:"name"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Literal string `json:"literal"`
	Custom  any    `json:"custom,omitempty"`
}

func recognizeCommand() *cli.Command {
	return &cli.Command{
		Name:        "recognize",
		Usage:       "fsmctl recognize --model FILE [TEXT...]",
		Description: "Recognize patterns in TEXT, or stdin when no TEXT is given",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Required: true},
			&cli.StringFlag{Name: flagAnalyzer, Aliases: []string{"a"}, Value: analysis.Standard, Usage: "standard, whitespace or keyword"},
			&cli.BoolFlag{Name: flagLower, Usage: "lower-case tokens before matching"},
			&cli.StringFlag{Name: flagHints, Usage: "TOML file of [[hint]] token-class rules"},
			&cli.BoolFlag{Name: flagJSON, Usage: "print a JSON array"},
		},
		Action: func(c *cli.Context) error {
			a, err := loadModel(c.String(flagModel), newLogger(c))
			if err != nil {
				return err
			}
			analyzer, err := analysis.NewRegistry().Get(c.String(flagAnalyzer))
			if err != nil {
				return err
			}
			transform, err := buildTransform(c.String(flagHints), c.Bool(flagLower))
			if err != nil {
				return err
			}

			text := strings.Join(c.Args().Slice(), " ")
			if c.NArg() == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				text = string(data)
			}
			if n, ok := analyzer.(interface{ Normalize(string) string }); ok {
				text = n.Normalize(text)
			}
			tokens := analyzer.Analyze(text)

			customs := make(map[int]any)
			matches := a.RecognizeWith(analysis.Terms(tokens), automaton.RecognizeConfig[string]{
				Transform: transform,
				OnDetect: func(m *automaton.Match, custom any) {
					if custom != nil {
						customs[m.Start] = custom
					}
				},
			})
			var out []recognized
			for _, m := range matches {
				out = append(out, recognized{
					Name:    m.Name,
					Start:   m.Start,
					End:     m.End,
					Literal: text[tokens[m.Start].StartByte:tokens[m.End].EndByte],
					Custom:  customs[m.Start],
				})
			}

			if c.Bool(flagJSON) {
				if out == nil {
					out = []recognized{}
				}
				enc := json.NewEncoder(c.App.Writer)
				return enc.Encode(out)
			}
			for _, r := range out {
				fmt.Fprintf(c.App.Writer, "%s\t%d\t%d\t%s\n", r.Name, r.Start, r.End, r.Literal)
			}
			return nil
		},
	}
}

func loadModel(path string, logger *slog.Logger) (*automaton.Automaton[string], error) {
	a := automaton.New(automaton.Options[string]{Logger: logger})
	if path == "" {
		return a, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read model")
	}
	if err := a.ImportJSON(string(data)); err != nil {
		return nil, errors.Wrapf(err, "model %s", path)
	}
	return a, nil
}

func readPatterns(path string) ([]automaton.Pattern[string], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read patterns")
	}
	var patterns []automaton.Pattern[string]
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, errors.Wrapf(err, "patterns %s", path)
	}
	return patterns, nil
}

type hintFile struct {
	Hints []tokenclass.Rule `toml:"hint"`
}

// buildTransform applies hint classes first and lower-cases what no hint
// claims.
func buildTransform(hintsPath string, lower bool) (automaton.TransformFunc[string], error) {
	var classifier *tokenclass.Classifier
	if hintsPath != "" {
		var hf hintFile
		if _, err := toml.DecodeFile(hintsPath, &hf); err != nil {
			return nil, errors.Wrapf(err, "decode hints %s", hintsPath)
		}
		var err error
		if classifier, err = tokenclass.NewClassifier(hf.Hints, 0); err != nil {
			return nil, err
		}
	}
	if classifier == nil && !lower {
		return nil, nil
	}
	return func(token string, param any, index int) string {
		if classifier != nil {
			if class, ok := classifier.Classify(token); ok {
				return class
			}
		}
		if lower {
			return strings.ToLower(token)
		}
		return token
	}, nil
}
