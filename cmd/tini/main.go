package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/tini/internal/backend"
	"github.com/dgallion1/tini/internal/config"
	"github.com/dgallion1/tini/internal/dom"
	"github.com/dgallion1/tini/internal/highlight"
	"github.com/dgallion1/tini/internal/parser"
	"github.com/dgallion1/tini/internal/selection"
	"github.com/dgallion1/tini/internal/upload"
)

var (
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            "tini",
		Usage:           "segment documents, place highlights and describe selections",
		HideHelpCommand: true,
		Before:          before,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log progress to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:      "chapters",
				Usage:     "Splits a document into chapters",
				ArgsUsage: "FILE",
				Action:    runChapters,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "output `FORMAT` (json or yaml)"},
				},
			},
			{
				Name:      "highlight",
				Usage:     "Wraps stored highlights in an HTML file",
				ArgsUsage: "FILE",
				Action:    runHighlight,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "highlights", Usage: "JSON `FILE` with an array of highlights", Required: true},
					&cli.BoolFlag{Name: "strip", Usage: "remove existing highlight marks first"},
				},
			},
			{
				Name:      "select",
				Usage:     "Describes the selection of a text occurrence in an HTML file",
				ArgsUsage: "FILE",
				Action:    runSelect,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "`TEXT` to select", Required: true},
					&cli.IntFlag{Name: "occurrence", Usage: "0-based occurrence `N` of the text"},
				},
			},
			{
				Name:      "upload",
				Usage:     "Validates a document and uploads it to the backend",
				ArgsUsage: "FILE",
				Action:    runUpload,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "document `TITLE`"},
					&cli.BoolFlag{Name: "dry-run", Usage: "validate only"},
				},
			},
			{
				Name:      "size",
				Usage:     "Formats a byte count",
				ArgsUsage: "BYTES",
				Action:    runSize,
			},
			{
				Name:   "dumpconfig",
				Usage:  "Prints the effective configuration (YAML) with secrets redacted",
				Action: runDumpConfig,
			},
		},
	}

	err := app.Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tini: %v\n", err)
		os.Exit(1)
	}
}

func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	var err error
	if cfg, err = config.Load(cmd.String("config")); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	return ctx, nil
}

func fileArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: expected exactly one FILE argument", cmd.Name)
	}
	return cmd.Args().First(), nil
}

func runChapters(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	p, err := parser.ForFile(path, log)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	book, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	log.Info("segmented", "file", path, "chapters", len(book.Chapters))
	return write(cmd.Root().Writer, cmd.String("format"), book)
}

func runHighlight(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	data, err := os.ReadFile(cmd.String("highlights"))
	if err != nil {
		return fmt.Errorf("read highlights: %w", err)
	}
	var records []highlight.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode highlights: %w", err)
	}

	out := string(content)
	if cmd.Bool("strip") {
		out = highlight.Strip(out)
	}
	_, err = io.WriteString(cmd.Root().Writer, highlight.Apply(out, records))
	return err
}

func runSelect(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := dom.Parse(string(content))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	text := cmd.String("text")
	rng := selection.FindText(doc, text, cmd.Int("occurrence"))
	if rng == nil {
		return fmt.Errorf("%q not found in %s", text, path)
	}
	desc := selection.Extract(selection.StaticSource{Range: rng})
	if desc == nil {
		return errors.New("selection is empty")
	}
	return write(cmd.Root().Writer, "json", desc)
}

func runUpload(ctx context.Context, cmd *cli.Command) error {
	path, err := fileArg(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	title := cmd.String("title")
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	kind, err := upload.Validate(upload.File{
		Title:    title,
		Filename: filepath.Base(path),
		Size:     int64(len(data)),
		Head:     data[:min(len(data), 512)],
	}, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}
	log.Info("upload valid", "file", path, "kind", kind, "size", upload.FormatFileSize(int64(len(data))))
	if cmd.Bool("dry-run") {
		fmt.Fprintf(cmd.Root().Writer, "%s: %s, %s\n", filepath.Base(path), kind, upload.FormatFileSize(int64(len(data))))
		return nil
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout)
	defer client.Close()
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := client.UploadDocument(ctx, title, filepath.Base(path), f)
	if err != nil {
		return err
	}
	return write(cmd.Root().Writer, "json", doc)
}

func runSize(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("size: expected exactly one BYTES argument")
	}
	n, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, upload.FormatFileSize(n))
	return err
}

func runDumpConfig(ctx context.Context, cmd *cli.Command) error {
	c := cfg
	if c.APIKey != "" {
		c.APIKey = "<redacted>"
	}
	if c.BackendAPIKey != "" {
		c.BackendAPIKey = "<redacted>"
	}
	return write(cmd.Root().Writer, "yaml", c)
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
