package companion

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hashicorp/go-multierror"
	openaioption "github.com/openai/openai-go/option"

	"github.com/lewisedginton/wellbeing_companion/internal/config"
	"github.com/lewisedginton/wellbeing_companion/internal/conversation_memory"
	"github.com/lewisedginton/wellbeing_companion/internal/crisis"
	"github.com/lewisedginton/wellbeing_companion/internal/emotion"
	"github.com/lewisedginton/wellbeing_companion/internal/models"
	"github.com/lewisedginton/wellbeing_companion/internal/models/anthropic"
	"github.com/lewisedginton/wellbeing_companion/internal/models/openai"
	"github.com/lewisedginton/wellbeing_companion/internal/patterns"
	"github.com/lewisedginton/wellbeing_companion/internal/responder"
	"github.com/lewisedginton/wellbeing_companion/internal/risk"
	"github.com/lewisedginton/wellbeing_companion/internal/sentiment"
	"github.com/lewisedginton/wellbeing_companion/internal/storage_manager"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
	"github.com/lewisedginton/wellbeing_companion/pkg/metrics"
)

// App is an engine together with the resources it opened.
type App struct {
	Engine  *Engine
	Store   *conversation_memory.Store
	Backend conversation_memory.Backend
	Storage *storage_manager.StorageManager

	log logger.Logger
}

// Build assembles an engine from configuration: pattern tables, classifiers,
// detectors, file storage, the memory backend and store, the optional
// generator and the response selector. m may be nil.
//
//nolint:revive // cognitive-complexity: sequential component setup
func Build(ctx context.Context, cfg *config.AppConfig, m *metrics.Metrics, log logger.Logger) (*App, error) {
	lib, err := loadPatterns(cfg.Responder.PatternFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern library: %w", err)
	}
	log.Debug("Loaded pattern library", logger.IntField("patterns", lib.PatternCount()))

	detector, err := crisis.NewDetector(cfg.Crisis.Detector())
	if err != nil {
		return nil, fmt.Errorf("failed to create crisis detector: %w", err)
	}
	repeated, err := crisis.NewRepeatedDetector(cfg.Crisis.Repeated())
	if err != nil {
		return nil, fmt.Errorf("failed to create repeated emotion detector: %w", err)
	}

	selector, err := newSelector(cfg, m, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create response selector: %w", err)
	}

	sm, err := storage_manager.Open(ctx, storage_manager.Options{
		Backend:    storage_manager.BackendType(cfg.Storage.Backend),
		LocalDir:   cfg.Storage.LocalDir,
		S3Bucket:   cfg.Storage.S3Bucket,
		S3Prefix:   cfg.Storage.S3Prefix,
		S3Region:   cfg.Storage.S3Region,
		S3Profile:  cfg.Storage.S3Profile,
		S3Endpoint: cfg.Storage.S3Endpoint,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	backend, err := conversation_memory.OpenBackend(ctx, conversation_memory.BackendConfig{
		Type:          conversation_memory.BackendType(cfg.Memory.Backend),
		Files:         sm.GetProvider(storage_manager.NamespaceMemory),
		Redis:         cfg.Redis,
		Database:      cfg.Database,
		RunMigrations: cfg.Memory.MigrateOnStart,
		SQLitePath:    cfg.Memory.SQLitePath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory backend: %w", err)
	}

	store := conversation_memory.New(conversation_memory.Config{
		Backend:        backend,
		Logger:         log,
		MemoryBound:    cfg.Memory.MemoryBound,
		AnalyticsBound: cfg.Memory.AnalyticsBound,
	})
	// a failed load leaves the store empty; the conversation still runs
	_ = store.Load(ctx)

	engine, err := New(Config{
		Risk:     risk.NewClassifier(lib, cfg.Crisis.RiskOptions()),
		Emotions: emotion.NewTracker(emotion.NewClassifier(lib, sentiment.NewLexiconScorer()), cfg.Memory.MemoryBound),
		Crisis:   detector,
		Repeated: repeated,
		Store:    store,
		Selector: selector,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return &App{Engine: engine, Store: store, Backend: backend, Storage: sm, log: log}, nil
}

// Backup writes a snapshot of the memory store to the backups namespace.
func (a *App) Backup(ctx context.Context, name string) error {
	return a.Store.SaveBackup(ctx, a.Storage.GetProvider(storage_manager.NamespaceBackups), name)
}

// Restore loads a snapshot from the backups namespace. It reports whether a
// backup was found.
func (a *App) Restore(ctx context.Context, name string) (bool, error) {
	return a.Store.LoadBackup(ctx, a.Storage.GetProvider(storage_manager.NamespaceBackups), name)
}

// Close releases the memory backend.
func (a *App) Close() error {
	if err := a.Backend.Close(); err != nil {
		return fmt.Errorf("failed to close memory backend: %w", err)
	}
	return nil
}

func loadPatterns(files []string) (*patterns.Library, error) {
	if len(files) > 0 {
		return patterns.LoadFile(files...)
	}
	return patterns.Default()
}

func newSelector(cfg *config.AppConfig, m *metrics.Metrics, log logger.Logger) (*responder.Selector, error) {
	opts := responder.Options{
		Locale:    cfg.Responder.Locale,
		MaxLength: cfg.Responder.MaxLength,
		Logger:    log,
	}

	var result error
	if cfg.Responder.TemplatesFile != "" {
		t, err := responder.LoadTemplatesFile(cfg.Responder.TemplatesFile)
		if err != nil {
			result = multierror.Append(result, err)
		}
		opts.Templates = t
	}
	if cfg.Responder.HelplinesFile != "" {
		h, err := responder.LoadHelplinesFile(cfg.Responder.HelplinesFile)
		if err != nil {
			result = multierror.Append(result, err)
		}
		opts.Helplines = h
	}
	if result != nil {
		return nil, result
	}

	if seed := cfg.Responder.Seed; seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // template choice only
	}

	gen, err := NewGenerator(cfg, log)
	if err != nil {
		return nil, err
	}
	if gen != nil {
		opts.Generator = &instrumentedGenerator{Generator: gen, metrics: m}
	}
	return responder.New(opts)
}

// NewGenerator creates the configured generative-reply provider. It returns
// nil when generation is disabled.
func NewGenerator(cfg *config.AppConfig, log logger.Logger) (models.Generator, error) {
	opts := models.Options{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
	}

	switch cfg.LLM.Provider {
	case config.ProviderClaude:
		reqOpts := []anthropicoption.RequestOption{anthropicoption.WithMaxRetries(cfg.Anthropic.MaxRetries)}
		if cfg.Anthropic.Timeout > 0 {
			reqOpts = append(reqOpts, anthropicoption.WithRequestTimeout(cfg.Anthropic.Timeout))
		}
		if cfg.Anthropic.APIBaseURL != "" {
			reqOpts = append(reqOpts, anthropicoption.WithBaseURL(cfg.Anthropic.APIBaseURL))
		}
		gen, err := anthropic.NewClaudeModel(cfg.Anthropic.APIKey, cfg.Anthropic.Model, opts, reqOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude model: %w", err)
		}
		log.Info("Using Claude for generated replies", logger.StringField("model", gen.Name()))
		return gen, nil

	case config.ProviderOpenAI:
		reqOpts := []openaioption.RequestOption{openaioption.WithMaxRetries(cfg.OpenAI.MaxRetries)}
		if cfg.OpenAI.Timeout > 0 {
			reqOpts = append(reqOpts, openaioption.WithRequestTimeout(cfg.OpenAI.Timeout))
		}
		if cfg.OpenAI.APIBaseURL != "" {
			reqOpts = append(reqOpts, openaioption.WithBaseURL(cfg.OpenAI.APIBaseURL))
		}
		gen, err := openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, opts, reqOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		log.Info("Using OpenAI for generated replies", logger.StringField("model", gen.Name()))
		return gen, nil

	case config.ProviderNone, "":
		log.Info("Generated replies disabled, using templates only")
		return nil, nil //nolint:nilnil // no generator configured

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

// instrumentedGenerator counts failed generations.
type instrumentedGenerator struct {
	models.Generator
	metrics *metrics.Metrics
}

func (g *instrumentedGenerator) Generate(ctx context.Context, req models.Request) (string, error) {
	start := time.Now()
	reply, err := g.Generator.Generate(ctx, req)
	if err != nil {
		g.metrics.IncrementGenerationFailures()
		return "", fmt.Errorf("%s failed after %s: %w", g.Name(), time.Since(start).Round(time.Millisecond), err)
	}
	return reply, nil
}

// Assessment is the stateless reading of one utterance.
type Assessment struct {
	Risk    risk.Assessment    `json:"risk"`
	Emotion emotion.Assessment `json:"emotion"`
}

// Assess classifies text with the configured pattern tables without recording
// anything.
func Assess(cfg *config.AppConfig, text string) (Assessment, error) {
	lib, err := loadPatterns(cfg.Responder.PatternFiles)
	if err != nil {
		return Assessment{}, fmt.Errorf("failed to load pattern library: %w", err)
	}
	return Assessment{
		Risk:    risk.NewClassifier(lib, cfg.Crisis.RiskOptions()).Assess(text),
		Emotion: emotion.NewClassifier(lib, sentiment.NewLexiconScorer()).Classify(text),
	}, nil
}
