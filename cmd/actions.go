package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/xhad/sitekb/internal/models"
	"github.com/xhad/sitekb/pkg/classifier"
	cfgPkg "github.com/xhad/sitekb/pkg/config"
	"github.com/xhad/sitekb/pkg/corpus"
	"github.com/xhad/sitekb/pkg/extractor"
	"github.com/xhad/sitekb/pkg/kbtable"
	"github.com/xhad/sitekb/pkg/llm"
	"github.com/xhad/sitekb/pkg/logger"
	"github.com/xhad/sitekb/pkg/metrics"
	"github.com/xhad/sitekb/pkg/pipeline"
	"github.com/xhad/sitekb/pkg/processor"
	"github.com/xhad/sitekb/pkg/questions"
	"github.com/xhad/sitekb/pkg/store"
	"github.com/xhad/sitekb/pkg/synth"
)

func FilesAction(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := config.RequireCorpus(false); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	docs, err := corpus.Walk(config.Corpus.Root, config.Corpus.BaseURL, config.Corpus.Extensions)
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}
	color.Blue("\nProcessing %d files under %s\n", len(docs), config.Corpus.Root)

	return generate(c, config, questions.ModeFiles, docs)
}

func URLsAction(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := config.RequireCorpus(true); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	docs, err := corpus.FromURLs(config.Corpus.URLs)
	if err != nil {
		return fmt.Errorf("failed to read URL list: %w", err)
	}
	color.Blue("\nProcessing %d URLs\n", len(docs))

	return generate(c, config, questions.ModeClassified, docs)
}

func generate(c *cli.Context, config *cfgPkg.Config, mode questions.Mode, docs []models.Document) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := llm.NewWithConfig(chatConfig(config))
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	m := metrics.New()
	stopMetrics := serveMetrics(config.Metrics.Addr, m)
	defer stopMetrics()

	set := extractor.NewWithConfig(extractor.Config{
		TitleSuffixes: config.Site.TitleSuffixes,
		Fetch: extractor.FetcherConfig{
			Timeout:   config.Fetch.Timeout,
			RateLimit: config.Fetch.RateLimit,
			UserAgent: config.Fetch.UserAgent,
		},
	})

	bar := getProgressBar(len(docs), "📄 Building knowledge base...")
	p, err := pipeline.NewWithConfig(pipeline.PipelineConfig{
		Mode:       mode,
		Workers:    config.Pipeline.Workers,
		Extractor:  set,
		Classifier: classifier.New(config.Site.ServiceCategories),
		Questions:  questions.New(config.Site.Name),
		Synth: synth.NewWithConfig(backend, synth.Config{
			SiteName:  config.Site.Name,
			Processor: processor.NewWithConfig(processor.ProcessorConfig{
				MaxChars:           config.LLM.MaxContentChars,
				PreserveLineBreaks: config.LLM.PreserveLineBreaks,
			}),
		}),
		Metrics: m,
		OnProgress: func(pr pipeline.Progress) {
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, docs)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("run %s interrupted, nothing written: %w", result.RunID, err)
	}

	if err := kbtable.WriteFile(config.Output.Path, result.Records); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.Output.Path, err)
	}

	printSummary(result, config.Output.Path, backend.Model())
	return nil
}

func ImportAction(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	if config.Database.URL == "" {
		return cli.Exit("database.url is not set (use --db-url or DATABASE_URL)", 1)
	}

	var replace bool
	switch mode := c.String("mode"); mode {
	case "add":
	case "replace":
		replace = true
	default:
		return cli.Exit(fmt.Sprintf("unknown import mode %q, want add or replace", mode), 1)
	}

	records, err := kbtable.ReadFile(c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.String("input"), err)
	}

	storeConfig := store.KnowledgeStoreConfig{
		ConnString: config.Database.URL,
		TableName:  config.Database.TableName,
		VectorDim:  config.Database.VectorDim,
		BatchSize:  config.Database.BatchSize,
	}
	if c.Bool("embed") {
		emb, err := newEmbedder(config)
		if err != nil {
			return err
		}
		storeConfig.Embedder = emb
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	stopMetrics := serveMetrics(config.Metrics.Addr, m)
	defer stopMetrics()

	ks, err := store.NewWithConfig(ctx, storeConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize knowledge store: %w", err)
	}
	defer ks.Close()

	spinner := getSpinner("💾 Importing records...")
	n, err := ks.Import(ctx, records, replace)
	_ = spinner.Finish()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	m.AddImported(n)

	color.Green("\n✓ Imported %d records into %s\n", n, config.Database.TableName)
	return nil
}

// SearchAction prints the stored records whose questions are nearest to
// the query. It needs a table imported with --embed.
func SearchAction(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}
	if config.Database.URL == "" {
		return cli.Exit("database.url is not set (use --db-url or DATABASE_URL)", 1)
	}
	query := strings.TrimSpace(c.String("query"))
	if query == "" {
		return cli.Exit("query must not be empty", 1)
	}

	emb, err := newEmbedder(config)
	if err != nil {
		return err
	}

	ctx := c.Context
	vectors, err := emb.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return err
	}

	ks, err := store.NewWithConfig(ctx, store.KnowledgeStoreConfig{
		ConnString: config.Database.URL,
		TableName:  config.Database.TableName,
		VectorDim:  config.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize knowledge store: %w", err)
	}
	defer ks.Close()

	found, err := ks.Search(ctx, vectors[0], c.Int("limit"))
	if err != nil {
		return err
	}
	if len(found) == 0 {
		color.Yellow("No embedded records found in %s\n", config.Database.TableName)
		return nil
	}
	for i, r := range found {
		color.Cyan("%d. %s\n", i+1, r.Question)
		fmt.Printf("   %s\n   %s\n", r.Answer, r.SourceURL)
	}
	return nil
}

func ProbeAction(c *cli.Context) error {
	config, err := loadConfig(c)
	if err != nil {
		return err
	}

	chat := chatConfig(config)
	color.Cyan("Probing %s (model %s)\n", chat.Endpoint, chat.Model)

	result, err := llm.Probe(c.Context, chat)
	if result.ModelsErr != nil {
		color.Yellow("⚠ model list unavailable: %v\n", result.ModelsErr)
	} else {
		fmt.Printf("Models: %s\n", strings.Join(result.Models, ", "))
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("status %d: %v", result.StatusCode, err), 1)
	}

	fmt.Printf("Status: %d\n", result.StatusCode)
	if !result.HasContent() {
		color.Yellow("⚠ response has no choices[0].message.content\n")
		return nil
	}
	color.Green("✓ %s\n", strings.TrimSpace(result.Content))
	return nil
}

// loadConfig reads the config file, then lets explicitly set flags win
// over file and environment values.
func loadConfig(c *cli.Context) (*cfgPkg.Config, error) {
	config, err := cfgPkg.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if err := applyFlags(c, config); err != nil {
		return nil, err
	}

	logger.Setup(config.Log.Level, config.Log.Format)

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("  %s\n", e.Error())
		}
		return nil, cli.Exit("invalid configuration", 1)
	}
	return config, nil
}

func applyFlags(c *cli.Context, config *cfgPkg.Config) error {
	if c.IsSet("log-level") {
		config.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		config.Log.Format = c.String("log-format")
	}
	if c.IsSet("metrics-addr") {
		config.Metrics.Addr = c.String("metrics-addr")
	}
	if c.IsSet("root") {
		config.Corpus.Root = c.String("root")
	}
	if c.IsSet("ext") {
		config.Corpus.Extensions = c.StringSlice("ext")
	}
	if c.IsSet("base-url") {
		config.Corpus.BaseURL = c.String("base-url")
	}
	if c.IsSet("url") {
		config.Corpus.URLs = c.StringSlice("url")
	}
	if c.IsSet("urls-file") {
		urls, err := readURLList(c.String("urls-file"))
		if err != nil {
			return err
		}
		config.Corpus.URLs = append(config.Corpus.URLs, urls...)
	}
	if c.IsSet("output") {
		config.Output.Path = c.String("output")
	}
	if c.IsSet("workers") {
		config.Pipeline.Workers = c.Int("workers")
	}
	if c.IsSet("fetch-timeout") {
		config.Fetch.Timeout = c.Duration("fetch-timeout")
	}
	if c.IsSet("llm-url") {
		config.LLM.Endpoint = c.String("llm-url")
	}
	if c.IsSet("llm-model") {
		config.LLM.Model = c.String("llm-model")
	}
	if c.IsSet("llm-provider") {
		config.LLM.Provider = c.String("llm-provider")
	}
	if c.IsSet("llm-timeout") {
		config.LLM.Timeout = c.Duration("llm-timeout")
	}
	if c.IsSet("db-url") {
		config.Database.URL = c.String("db-url")
	}
	if c.IsSet("table") {
		config.Database.TableName = c.String("table")
	}
	return nil
}

func newEmbedder(config *cfgPkg.Config) (*llm.Embedder, error) {
	return llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: config.Embedding.Provider,
		Model:    config.Embedding.Model,
		BaseURL:  config.Embedding.BaseURL,
		APIKey:   config.LLM.APIKey,
	})
}

func chatConfig(config *cfgPkg.Config) llm.ChatConfig {
	return llm.ChatConfig{
		Provider:    config.LLM.Provider,
		Endpoint:    config.LLM.Endpoint,
		APIKey:      config.LLM.APIKey,
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		Timeout:     config.LLM.Timeout,
	}
}

// readURLList returns the non-blank lines of path, skipping # comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func serveMetrics(addr string, m *metrics.Metrics) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
