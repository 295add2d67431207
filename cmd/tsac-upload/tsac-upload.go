package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"gotimescales/formats/tsa"
	"gotimescales/internal/formats/csv"
	"gotimescales/internal/logger"
	"gotimescales/internal/pipeline"
	"gotimescales/internal/series"
)

type processedAnalysis struct {
	Name    string `json:"name"`
	RawData string `json:"data"`
}

type ApiError struct {
	Status       int
	ErrorMessage string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("server responded with %d: %s", e.Status, e.ErrorMessage)
}

func putAnalysis(client *http.Client, server, token string, a *tsa.Analysis) (string, error) {
	data, err := tsa.Encode(a)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(processedAnalysis{
		Name:    a.Name,
		RawData: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest("PUT", strings.TrimSuffix(server, "/")+"/analysis/processed", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Token", token)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	response := struct {
		Id      string `json:"id"`
		Message string `json:"error"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil && resp.StatusCode == http.StatusCreated {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		if response.Message == "" {
			response.Message = http.StatusText(resp.StatusCode)
		}
		return "", &ApiError{Status: resp.StatusCode, ErrorMessage: response.Message}
	}
	return response.Id, nil
}

func main() {
	var opts struct {
		DataFile   string `short:"i" long:"input" description:"Observation data file (CSV)" required:"true"`
		ConfigFile string `short:"c" long:"config" description:"Analysis configuration (JSON)"`
		Lake       string `short:"L" long:"lake" description:"Lake name when the CSV has no lake column"`
		ApiServer  string `short:"s" long:"server" env:"TSAC_SERVER" description:"HTTP API server URL" default:"http://localhost:8080"`
		ApiToken   string `short:"t" long:"token" env:"TSAC_TOKEN" description:"HTTP API token"`
	}
	_, err := flags.Parse(&opts)
	if err != nil {
		return
	}

	log, err := logger.New("dev")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	token := opts.ApiToken
	if token == "" {
		fmt.Print("Token: ")
		t, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			log.Fatal("could not read token", "error", err)
		}
		token = string(t)
	}

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
	if cfg.Name == "" {
		basename := path.Base(opts.DataFile)
		cfg.Name = strings.TrimSuffix(basename, path.Ext(basename))
	}

	layout := csv.DefaultLayout()
	layout.DefaultLake = series.Lake(opts.Lake)
	tbl, err := csv.LoadFile(opts.DataFile, layout)
	if err != nil {
		log.Fatal("could not load data", "file", opts.DataFile, "error", err)
	}
	a, err := pipeline.Run(context.Background(), tbl, cfg, log)
	if err != nil {
		log.Fatal("analysis failed", "error", err)
	}

	id, err := putAnalysis(&http.Client{}, opts.ApiServer, token, a)
	if err != nil {
		log.Fatal("upload failed", "server", opts.ApiServer, "token", token, "error", err)
	}
	log.Info("analysis uploaded", "id", id)
}
