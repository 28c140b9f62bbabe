package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/poiesic/clausewise"
	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/matching"
	"github.com/poiesic/clausewise/reembed"
	"github.com/poiesic/clausewise/report"
	"github.com/poiesic/clausewise/risk"
	"github.com/poiesic/clausewise/scoring"
	"github.com/poiesic/clausewise/search"
	"github.com/poiesic/clausewise/section"
	"github.com/poiesic/clausewise/sources"
	"github.com/urfave/cli/v2"
)

// aiConfig builds the AI configuration from the global flags.
func aiConfig(c *cli.Context) (*ai.Config, error) {
	summaryHost := c.String("summary-host")
	if summaryHost == "" {
		summaryHost = c.String("embedding-host")
	}
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithSummaryHost(summaryHost),
		ai.WithSummaryModel(c.String("summary-model")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithEmbedTimeout(c.Duration("embed-timeout")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func (e *env) openWorkspace(c *cli.Context, extra ...clausewise.WorkspaceOption) (*clausewise.Workspace, error) {
	cfg, err := aiConfig(c)
	if err != nil {
		return nil, err
	}

	opts := []clausewise.WorkspaceOption{
		clausewise.WithAIConfig(cfg),
		clausewise.WithMetrics(e.recorder),
	}
	if path := c.String("lexicon"); path != "" {
		lexicon, err := risk.LoadLexicon(path)
		if err != nil {
			return nil, fmt.Errorf("loading lexicon: %w", err)
		}
		opts = append(opts, clausewise.WithLexicon(lexicon))
	}
	if path := c.String("sections"); path != "" {
		classifier, err := section.LoadClassifier(path)
		if err != nil {
			return nil, fmt.Errorf("loading section table: %w", err)
		}
		opts = append(opts, clausewise.WithClassifier(classifier))
	}

	ws, err := clausewise.Open(c.String("db"), append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return ws, nil
}

// resolveDocument opens a stored snapshot when ref is a snapshot ID and
// ingests ref as a path or URL otherwise.
func resolveDocument(c *cli.Context, ws *clausewise.Workspace, ref string) (*clausewise.Document, error) {
	if id, err := core.ParseID(ref); err == nil {
		return ws.OpenSnapshot(c.Context, id)
	}
	return ws.Ingest(c.Context, ref)
}

func (e *env) ingestCommand(c *cli.Context) error {
	ref := c.Args().First()
	if ref == "" {
		return errors.New("document path or URL is required")
	}

	ws, err := e.openWorkspace(c,
		clausewise.WithLoaderOptions(sources.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap"))),
		clausewise.WithPoolSize(c.Int("workers")),
	)
	if err != nil {
		return err
	}
	defer ws.Close()

	doc, err := ws.Ingest(c.Context, ref)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", ref, err)
	}

	if doc.Reused {
		fmt.Fprintf(e.out, "Document already analyzed, reusing snapshot %s\n", doc.Snapshot.ID)
	} else {
		fmt.Fprintf(e.out, "Snapshot: %s\n", doc.Snapshot.ID)
		rep := doc.Report
		fmt.Fprintf(e.out, "Fragments: %d (skipped %d, failed %d)\n", rep.Fragments, rep.Skipped, len(rep.Failures))
		fmt.Fprintf(e.out, "Embedded: %d/%d clauses in %v\n", rep.Embedded(), len(rep.Records), rep.Duration.Round(time.Millisecond))
		if n := len(rep.EmbeddingFailures); n > 0 {
			fmt.Fprintf(e.out, "%d clauses have no embedding; run 'clausewise backfill --snapshot %s'\n", n, doc.Snapshot.ID)
		}
	}
	fmt.Fprint(e.out, ws.Overview(doc))
	return nil
}

func (e *env) queryCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("question is required")
	}
	policy, err := search.ParsePolicy(c.String("policy"))
	if err != nil {
		return err
	}

	ws, err := e.openWorkspace(c, clausewise.WithPolicy(policy))
	if err != nil {
		return err
	}
	defer ws.Close()

	doc, err := resolveDocument(c, ws, c.String("doc"))
	if err != nil {
		return err
	}

	if c.Bool("no-summary") {
		retriever, err := ws.NewRetriever(doc)
		if err != nil {
			return err
		}
		result, err := retriever.Retrieve(c.Context, query, c.Int("k"))
		if err != nil {
			return err
		}
		e.printResult(result)
		return nil
	}

	analysis, err := ws.Query(c.Context, doc, query, c.Int("k"))
	if err != nil {
		return err
	}
	e.printResult(analysis.Result)
	if analysis.Result.Empty() {
		return nil
	}
	if analysis.SummaryErr != nil {
		fmt.Fprintf(e.out, "\nAnalysis unavailable: %v\n", analysis.SummaryErr)
		return nil
	}
	fmt.Fprintf(e.out, "\nAI ANALYSIS:\n%s\n", analysis.Summary)
	return nil
}

func (e *env) printResult(result *search.Result) {
	if result.Empty() {
		fmt.Fprintln(e.out, report.NoMatches)
		return
	}
	for _, d := range result.Degraded {
		fmt.Fprintf(e.out, "Note: %s index unavailable (%v)\n", d.Index, d.Err)
	}
	fmt.Fprintf(e.out, "Top %d clauses (%s):\n", len(result.Candidates), result.Policy)
	for i, cand := range result.Candidates {
		fmt.Fprintf(e.out, "\n[%d] score %.3f via %s\n", i+1, cand.Score, cand.Provenance)
		fmt.Fprint(e.out, report.FormatClause(cand.Clause))
	}
}

func (e *env) reportCommand(c *cli.Context) error {
	ws, err := e.openWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	doc, err := resolveDocument(c, ws, c.String("doc"))
	if err != nil {
		return err
	}
	fmt.Fprint(e.out, ws.Overview(doc))
	return nil
}

func (e *env) snapshotsCommand(c *cli.Context) error {
	ws, err := e.openWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	snapshots, err := ws.Snapshots(c.Context)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(e.out, "No snapshots stored")
		return nil
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tCLAUSES\tEMBEDDED\tSOURCE")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), s.ClauseCount, s.EmbeddedCount, s.Source)
	}
	return w.Flush()
}

func (e *env) profilesAddCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("profile file is required")
	}
	profiles, err := matching.LoadProfiles(path)
	if err != nil {
		return err
	}

	ws, err := e.openWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	matcher, err := ws.NewMatcher()
	if err != nil {
		return err
	}
	added, err := matcher.AddProfiles(c.Context, profiles...)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Added %d profiles (%d already stored)\n", len(added), len(profiles)-len(added))
	return nil
}

func (e *env) matchCommand(c *cli.Context) error {
	description := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(description) == "" {
		return errors.New("case description is required")
	}

	ws, err := e.openWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	matcher, err := ws.NewMatcher()
	if err != nil {
		return err
	}
	results, err := matcher.Recommend(c.Context, description, c.Int("top-k"))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(e.out, "No profiles stored; add some with 'clausewise profiles add'")
		return nil
	}

	for i, r := range results {
		p := r.Profile
		fmt.Fprintf(e.out, "%d. %s (%s) score %.3f\n", i+1, p.Name, p.ID, r.Score)
		fmt.Fprintf(e.out, "   Expertise: %s | Experience: %g years | Reputation: %.1f\n",
			strings.Join(p.Expertise, ", "), p.ExperienceYears, p.Reputation)
		fmt.Fprintf(e.out, "   similarity %.3f, experience %.3f, reputation %.3f\n",
			r.Breakdown[scoring.SimilarityComponent], r.Breakdown[matching.ComponentExperience], r.Breakdown[matching.ComponentReputation])
	}
	return nil
}

func (e *env) backfillCommand(c *cli.Context) error {
	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Concurrency:    c.Int("concurrency"),
	}

	// Validate config
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0")
	}

	var snapshotID core.ID
	if ref := c.String("snapshot"); ref != "" {
		id, err := core.ParseID(ref)
		if err != nil {
			return fmt.Errorf("invalid snapshot ID %q: %w", ref, err)
		}
		snapshotID = id
	}

	ws, err := e.openWorkspace(c)
	if err != nil {
		return err
	}
	defer ws.Close()

	reembedder, err := ws.NewReembedder(config, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	var results []*reembed.Result
	if snapshotID.IsNil() {
		results, err = reembedder.RunAll(c.Context)
	} else {
		var res *reembed.Result
		res, err = reembedder.Run(c.Context, snapshotID)
		if res != nil {
			results = append(results, res)
		}
	}
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	var failed []error
	for _, r := range results {
		fmt.Fprintf(e.out, "%s: embedded %d of %d clauses\n", r.SnapshotID, r.Embedded, r.Pending)
		if err := r.Err(); err != nil {
			failed = append(failed, fmt.Errorf("snapshot %s: %w", r.SnapshotID, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("some batches were not embedded: %w", errors.Join(failed...))
	}
	return nil
}
