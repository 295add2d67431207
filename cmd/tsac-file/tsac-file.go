package main

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/jessevdk/go-flags"

	"gotimescales/formats/tsa"
	"gotimescales/internal/formats/csv"
	"gotimescales/internal/logger"
	"gotimescales/internal/pipeline"
	"gotimescales/internal/series"
)

func main() {
	var opts struct {
		DataFile   string `short:"i" long:"input" description:"Observation data file (CSV)" required:"true"`
		ConfigFile string `short:"c" long:"config" description:"Analysis configuration (JSON)"`
		Lake       string `short:"L" long:"lake" description:"Lake name when the CSV has no lake column"`
		TimeColumn string `short:"t" long:"timecolumn" description:"Name of the timestamp column" default:"datetime"`
		OutputFile string `short:"o" long:"output" description:"Output file"`
		Verbose    bool   `short:"v" long:"verbose" description:"Log progress to stderr"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	log := logger.Nop()
	if opts.Verbose {
		if log, err = logger.New("dev"); err != nil {
			panic(err)
		}
	}
	defer log.Sync()

	cfg := pipeline.DefaultConfig()
	if opts.ConfigFile != "" {
		b, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			log.Fatal("could not read configuration", "error", err)
		}
		if cfg, err = pipeline.ParseConfig(b); err != nil {
			log.Fatal("invalid configuration", "error", err)
		}
	}

	layout := csv.DefaultLayout()
	layout.DefaultLake = series.Lake(opts.Lake)
	layout.TimeColumn = opts.TimeColumn
	tbl, err := csv.LoadFile(opts.DataFile, layout)
	if err != nil {
		log.Fatal("could not load data", "file", opts.DataFile, "error", err)
	}

	basename := path.Base(opts.DataFile)
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(basename, path.Ext(basename))
	}
	a, err := pipeline.Run(context.Background(), tbl, cfg, log)
	if err != nil {
		log.Fatal("analysis failed", "error", err)
	}

	var output = opts.OutputFile
	if output == "" {
		output = strings.TrimSuffix(opts.DataFile, path.Ext(opts.DataFile)) + ".TSA"
	}
	b, err := tsa.Encode(a)
	if err != nil {
		log.Fatal("could not encode analysis", "error", err)
	}
	if err := os.WriteFile(output, b, 0644); err != nil {
		log.Fatal("could not write output", "file", output, "error", err)
	}
	log.Info("analysis written", "file", output, "panels", len(a.Panels))
}
