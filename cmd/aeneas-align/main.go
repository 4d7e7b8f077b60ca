// Command aeneas-align is a thin demonstration front-end for the
// single-level task executor: it reads a real-audio WAV file and a
// plain-text transcript (one fragment per line), aligns them, and
// writes a flattened CSV of (identifier, begin, end) triples. It
// exists to prove the library is callable end-to-end, not as the
// module's real CLI surface.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/naglis/aeneas-sub000/config"
	"github.com/naglis/aeneas-sub000/logging"
	"github.com/naglis/aeneas-sub000/syncmap"
	"github.com/naglis/aeneas-sub000/task"
	"github.com/naglis/aeneas-sub000/textmodel"
	"github.com/naglis/aeneas-sub000/tts"
)

// CLI defines the command-line interface.
type CLI struct {
	Audio      string `arg:"" name:"audio" help:"Real-audio WAV file to align against." type:"existingfile"`
	Transcript string `arg:"" name:"transcript" help:"Plain-text transcript, one fragment per line." type:"existingfile"`
	Config     string `help:"YAML configuration file; defaults are used if omitted." type:"existingfile"`
	Output     string `short:"o" help:"Output CSV path." default:"aeneas-align.csv"`
	LogLevel   string `help:"Log level (debug, info, warn, error)." default:"info"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("aeneas-align"),
		kong.Description("Demonstration single-level forced-alignment runner."),
		kong.UsageOnError(),
	)

	if err := run(cli); err != nil {
		fmt.Fprintln(os.Stderr, "aeneas-align:", err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	log := logging.New(cfg.LogLevel)

	fragments, err := loadTranscript(cli.Transcript)
	if err != nil {
		return fmt.Errorf("loading transcript: %w", err)
	}

	synth := tts.NewFakeSynthesizer(cfg.SampleRate)
	executor := task.NewExecutor(cfg, log, synth)

	tree, err := executor.Run(context.Background(), cli.Audio, fragments, task.Configuration{})
	if err != nil {
		return fmt.Errorf("aligning: %w", err)
	}

	return writeCSV(cli.Output, tree)
}

func loadConfig(path string) (config.RuntimeConfiguration, error) {
	if path == "" {
		return config.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return config.RuntimeConfiguration{}, err
	}
	defer f.Close()
	return config.Load(f)
}

// loadTranscript treats every non-empty line as its own fragment,
// identified by its 1-based line number.
func loadTranscript(path string) ([]*textmodel.TextFragment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fragments []*textmodel.TextFragment
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fragments = append(fragments, &textmodel.TextFragment{
			Identifier: "f" + strconv.Itoa(lineNo),
			Lines:      []string{line},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("transcript %q has no non-empty lines", path)
	}
	return fragments, nil
}

// writeCSV flattens tree's direct children of the root into
// (identifier, begin, end) rows, in tree order.
func writeCSV(path string, tree *syncmap.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, idx := range tree.Children(syncmap.RootIndex) {
		frag := tree.Fragment(idx)
		identifier := frag.Text.Identifier
		if err := w.Write([]string{identifier, frag.Interval.Begin.String(), frag.Interval.End.String()}); err != nil {
			return err
		}
	}
	return w.Error()
}
