// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/matching"
	"github.com/poiesic/clausewise/metrics"
	"github.com/poiesic/clausewise/reembed"
	"github.com/poiesic/clausewise/sources"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// env carries what every command shares: the output stream and the
// metrics registry written by --metrics-out.
type env struct {
	out      io.Writer
	registry *prometheus.Registry
	recorder metrics.Recorder
}

func newApp(out io.Writer) *cli.App {
	e := &env{out: out, recorder: metrics.Noop()}
	defaults := ai.DefaultConfig()

	return &cli.App{
		Name:  "clausewise",
		Usage: "Risk analysis and hybrid retrieval for legal documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"CLAUSEWISE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./clausewise_db",
				EnvVars: []string{"CLAUSEWISE_DB"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   defaults.EmbeddingHost,
				EnvVars: []string{"CLAUSEWISE_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   defaults.EmbeddingModel,
				EnvVars: []string{"CLAUSEWISE_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "summary-host",
				Usage:   "Chat service host URL used for analyses (defaults to embedding-host)",
				EnvVars: []string{"CLAUSEWISE_SUMMARY_HOST"},
			},
			&cli.StringFlag{
				Name:    "summary-model",
				Usage:   "Chat model name used for analyses",
				Value:   defaults.SummaryModel,
				EnvVars: []string{"CLAUSEWISE_SUMMARY_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent to the AI services",
				EnvVars: []string{"CLAUSEWISE_API_KEY", "OPENAI_API_KEY"},
			},
			&cli.DurationFlag{
				Name:    "embed-timeout",
				Usage:   "Timeout for a single embedding call (0 disables)",
				Value:   defaults.EmbedTimeout,
				EnvVars: []string{"CLAUSEWISE_EMBED_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "lexicon",
				Usage:   "YAML risk lexicon replacing the built-in one",
				EnvVars: []string{"CLAUSEWISE_LEXICON"},
			},
			&cli.StringFlag{
				Name:    "sections",
				Usage:   "YAML section table replacing the built-in one",
				EnvVars: []string{"CLAUSEWISE_SECTIONS"},
			},
			&cli.StringFlag{
				Name:    "metrics-out",
				Usage:   "Write Prometheus metrics to this file on exit",
				EnvVars: []string{"CLAUSEWISE_METRICS_OUT"},
			},
		},
		Before: e.before,
		After:  e.after,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Analyze a document (.txt, .html, .pdf or http(s) URL) and store its clauses",
				ArgsUsage: "<path-or-url>",
				Action:    e.ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Characters per chunk before segmentation",
						Value: sources.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by consecutive chunks",
						Value: sources.DefaultChunkOverlap,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Scan and embedding worker pool size (0 uses the CPU count)",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Retrieve the clauses relevant to a question and summarize their risks",
				ArgsUsage: "<question>",
				Action:    e.queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "doc",
						Usage:    "Snapshot ID, or a document path or URL to ingest first",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of clauses to retrieve",
						Value: 5,
					},
					&cli.StringFlag{
						Name:    "policy",
						Usage:   "Ranking policy (risk_first, blended)",
						Value:   "risk_first",
						EnvVars: []string{"CLAUSEWISE_POLICY"},
					},
					&cli.BoolFlag{
						Name:  "no-summary",
						Usage: "Print ranked clauses without calling the chat model",
					},
				},
			},
			{
				Name:   "report",
				Usage:  "Print the risk overview of a stored document",
				Action: e.reportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "doc",
						Usage:    "Snapshot ID, or a document path or URL to ingest first",
						Required: true,
					},
				},
			},
			{
				Name:   "snapshots",
				Usage:  "List stored document snapshots",
				Action: e.snapshotsCommand,
			},
			{
				Name:  "profiles",
				Usage: "Manage candidate profiles",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Embed and store profiles from a YAML or JSON file",
						ArgsUsage: "<file>",
						Action:    e.profilesAddCommand,
					},
				},
			},
			{
				Name:      "match",
				Usage:     "Recommend profiles for a case description",
				ArgsUsage: "<description>",
				Action:    e.matchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of profiles to recommend",
						Value: matching.DefaultTopK,
					},
				},
			},
			{
				Name:   "backfill",
				Usage:  "Embed stored clauses that have no embedding",
				Action: e.backfillCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "snapshot",
						Usage: "Only backfill this snapshot ID (default: every incomplete snapshot)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of clauses embedded per call",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N clauses",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding call",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of batches embedded at once",
						Value: 2,
					},
				},
			},
		},
	}
}

func (e *env) before(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	if c.String("metrics-out") == "" {
		return nil
	}
	e.registry = prometheus.NewRegistry()
	rec, err := metrics.New(e.registry)
	if err != nil {
		return err
	}
	e.recorder = rec
	return nil
}

func (e *env) after(c *cli.Context) error {
	path := c.String("metrics-out")
	if path == "" || e.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	slog.Debug("wrote metrics", "path", path)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
