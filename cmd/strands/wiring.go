package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/strands-sre/strands/pkg/adapters"
	"github.com/strands-sre/strands/pkg/alerts"
	"github.com/strands-sre/strands/pkg/audit"
	"github.com/strands-sre/strands/pkg/config"
	"github.com/strands-sre/strands/pkg/correlation"
	"github.com/strands-sre/strands/pkg/decision"
	"github.com/strands-sre/strands/pkg/incident"
	"github.com/strands-sre/strands/pkg/masking"
	"github.com/strands-sre/strands/pkg/models"
	"github.com/strands-sre/strands/pkg/notify"
	"github.com/strands-sre/strands/pkg/playbook"
	"github.com/strands-sre/strands/pkg/recommender"
	"github.com/strands-sre/strands/pkg/resilience"
	"github.com/strands-sre/strands/pkg/review"
	"github.com/strands-sre/strands/pkg/specialists"
	"github.com/strands-sre/strands/pkg/store"
	"github.com/strands-sre/strands/pkg/swarm"
)

// app bundles every collaborator buildApp wires together, so each
// subcommand only needs the slice of it relevant to that command (the
// controller loop needs everything; validate-config needs only cfg;
// playbook needs only playbooks).
type app struct {
	cfg *config.Config

	pool       *pgxpool.Pool
	resilience *resilience.Registry

	playbooks *playbook.Service
	reviews   *review.Service
	masker    *masking.Service

	controller *incident.Controller
	replayDeps replayDeps
}

// replayDeps is the slice of app the `replay` subcommand needs, split out
// since it never touches the graph store or HTTP server.
type replayDeps struct {
	normalizer   *alerts.Normalizer
	clusterer    *alerts.Clusterer
	investigator *swarm.Runner
	decisionOpts decision.Options
}

// playbookApp is the slice of collaborators the `playbook` subcommand
// group needs: just the store pool and the playbook service, skipping
// every adapter (Kubernetes, Redis, Prometheus, Anthropic) that `run` and
// `replay` require but a playbook list/show/approve/reject never touches.
type playbookApp struct {
	pool      *pgxpool.Pool
	playbooks *playbook.Service
}

func (a *playbookApp) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func buildPlaybookApp(ctx context.Context, cfg *config.Config) (*playbookApp, error) {
	pool, err := store.NewPool(ctx, storeConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	playbookRepo := store.NewPlaybookRepository(pool)
	return &playbookApp{pool: pool, playbooks: playbook.NewService(playbookRepo, nil)}, nil
}

// buildApp constructs every collaborator from cfg: database first, then
// domain services atop it, then the HTTP layer last. Adapters that need
// live credentials (Kubernetes, Redis, Prometheus, Anthropic) are built
// unconditionally; the external interfaces are all required inputs, not
// optional extras, so a misconfigured one is a startup (exit 1) failure,
// not a degraded-mode skip.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	resilienceRegistry := resilience.NewRegistry()

	pool, err := store.NewPool(ctx, storeConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	graphStore := store.NewGraphStore(pool)
	playbookRepo := store.NewPlaybookRepository(pool)
	reviewRepo := store.NewReviewRepository(pool)

	metricsSource, err := adapters.NewPrometheusMetricsSource(cfg.Adapters.MetricsURL, resilienceRegistry.Get("prometheus"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build prometheus adapter: %w", err)
	}

	kubeCfg, err := buildKubeConfig(cfg.Adapters.Kubeconfig)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build kubernetes config: %w", err)
	}
	introspector, err := adapters.NewKubernetesIntrospector(kubeCfg, resilienceRegistry.Get("kubernetes"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build kubernetes adapter: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Adapters.VectorURL})
	vectorStore := adapters.NewRedisVectorStore(redisClient, resilienceRegistry.Get("redis-vector"))

	generatorAPIKey := os.Getenv(cfg.Adapters.GeneratorAPIKeyEnv)
	textGenerator := adapters.NewAnthropicTextGenerator(generatorAPIKey, resilienceRegistry.Get("anthropic"))

	masker := masking.NewService(masking.AlertMaskingConfig{Enabled: true, PatternGroup: "alert"})

	providerRegistry, err := buildProviderRegistry(cfg, metricsSource, resilienceRegistry)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build alert provider registry: %w", err)
	}

	collector := alerts.NewCollector(providerRegistry)
	normalizer := alerts.NewNormalizer(severityMapsFrom(cfg), 0, masker)
	clusterer := alerts.NewClusterer(0)

	specialistRegistry, err := buildSpecialistRegistry(cfg, metricsSource, introspector, vectorStore, textGenerator, graphStore, resilienceRegistry)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build specialist registry: %w", err)
	}
	investigator := swarm.NewRunner(specialistRegistry, cfg.System.GlobalDeadline)

	playbookService := playbook.NewService(playbookRepo, nil)
	recommenderSvc := recommender.New(playbookRepo, textGenerator, resilienceRegistry.Get("anthropic"))

	var notifier *notify.Service
	if cfg.Notify.Enabled {
		notifier = notify.New(notify.Config{
			Token:        os.Getenv(cfg.Notify.TokenEnv),
			Channel:      cfg.Notify.Channel,
			DashboardURL: cfg.Notify.DashboardURL,
		})
	}
	reviewService := review.NewService(reviewRepo, playbookService, notifier)

	decisionOpts, err := decisionOptionsFrom(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("resolve decision options: %w", err)
	}

	auditLog := audit.NewLogger(os.Stdout)

	controller := incident.New(incident.Config{
		Collector:    collector,
		Normalizer:   normalizer,
		Clusterer:    clusterer,
		Investigator: investigator,
		DecisionOpts: decisionOpts,
		Recommender:  recommenderSvc,
		Reviews:      reviewService,
		Graph:        graphStore,
		AuditLog:     auditLog,
		TickBudget:   cfg.System.TickInterval,
	})

	return &app{
		cfg:        cfg,
		pool:       pool,
		resilience: resilienceRegistry,
		playbooks:  playbookService,
		reviews:    reviewService,
		masker:     masker,
		controller: controller,
		replayDeps: replayDeps{
			normalizer:   normalizer,
			clusterer:    clusterer,
			investigator: investigator,
			decisionOpts: decisionOpts,
		},
	}, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// buildProviderRegistry adapts the configured Prometheus MetricsSource into
// a named alerts.Provider; additional providers would be registered here by
// the same pattern as configuration grows beyond the one built-in adapter
// this deployment ships.
func buildProviderRegistry(cfg *config.Config, metricsSource adapters.MetricsSource, registry *resilience.Registry) (*alerts.ProviderRegistry, error) {
	descriptors := make([]alerts.ProviderDescriptor, 0, len(cfg.ProviderRegistry.GetAll()))
	for _, pc := range cfg.ProviderRegistry.GetAll() {
		provider := alerts.NewMetricsProvider(pc.Name, metricsSource, registry.Get(pc.Name))
		descriptors = append(descriptors, alerts.ProviderDescriptor{
			Provider:    provider,
			Priority:    pc.Priority,
			SeverityMap: pc.SeverityMap,
		})
	}
	if len(descriptors) == 0 {
		descriptors = append(descriptors, alerts.ProviderDescriptor{
			Provider: alerts.NewMetricsProvider("prometheus", metricsSource, registry.Get("prometheus")),
			Priority: 0,
		})
	}
	return alerts.NewProviderRegistry(descriptors...)
}

func severityMapsFrom(cfg *config.Config) map[string]alerts.SeverityMap {
	out := make(map[string]alerts.SeverityMap, len(cfg.ProviderRegistry.GetAll()))
	for _, pc := range cfg.ProviderRegistry.GetAll() {
		if len(pc.SeverityMap) > 0 {
			out[pc.Name] = alerts.SeverityMap(pc.SeverityMap)
		}
	}
	return out
}

// buildSpecialistRegistry registers exactly the five known specialists,
// each disabled only if its config entry explicitly
// turns it off.
func buildSpecialistRegistry(
	cfg *config.Config,
	metrics adapters.MetricsSource,
	introspector adapters.ClusterIntrospector,
	vectors adapters.VectorStore,
	generator adapters.TextGenerator,
	graph adapters.GraphStore,
	registry *resilience.Registry,
) (*swarm.Registry, error) {
	all := map[string]swarm.Specialist{
		"metrics":    specialists.NewMetricsAnalyst(metrics, registry.Get("metrics-specialist")),
		"logs":       specialists.NewLogInspector(introspector, registry.Get("logs-specialist")),
		"embeddings": specialists.NewEmbeddingSimilarity(generator, vectors, registry.Get("embeddings-specialist")),
		"graph":      specialists.NewGraphContext(graph, registry.Get("graph-specialist")),
	}

	enabled := make([]swarm.Specialist, 0, len(all)+1)
	for id, s := range all {
		if sc, err := cfg.GetSpecialist(id); err == nil && !sc.Enabled {
			continue
		}
		enabled = append(enabled, s)
	}

	// The correlator makes no adapter call, so it has no resilience.Policy
	// and nothing to disable via config: it always runs.
	enabled = append(enabled, specialists.NewCorrelator(correlationAnalyzer()))

	return swarm.NewRegistry(enabled...)
}

// decisionOptionsFrom converts config's plain string enums to the decision
// package's typed ones at the one place those two packages are allowed to
// meet, per pkg/config/enums.go's own documented intent.
func decisionOptionsFrom(cfg *config.Config) (decision.Options, error) {
	opts := decision.DefaultOptions()
	opts.Policy = policyFromName(config.PolicyName(cfg.Decision.Policy))
	opts.DefaultAutomation = automationFromName(config.AutomationLevelName(cfg.Decision.DefaultAutomation))
	if cfg.Decision.Weights != nil {
		opts.Weights = decision.WeightMatrix{Version: cfg.Decision.Weights.Version, Weights: cfg.Decision.Weights.Weights}
	}
	return opts, nil
}

func policyFromName(name config.PolicyName) decision.ThresholdPolicy {
	switch name {
	case config.PolicyNameStrict:
		return decision.PolicyStrict
	case config.PolicyNamePermissive:
		return decision.PolicyPermissive
	default:
		return decision.PolicyBalanced
	}
}

func automationFromName(name config.AutomationLevelName) models.AutomationLevel {
	switch name {
	case config.AutomationLevelManual:
		return models.AutomationManual
	case config.AutomationLevelAssisted:
		return models.AutomationAssisted
	default:
		return models.AutomationFull
	}
}

// correlationAnalyzer builds the Correlator specialist's analyzer with
// its own default config; distinct from pkg/correlation's standalone
// temporal-analysis usage elsewhere, since the swarm's per-cluster
// correlator only ever sees that cluster's own member alerts.
func correlationAnalyzer() *correlation.Analyzer {
	return correlation.NewAnalyzer(correlation.DefaultConfig())
}

// buildKubeConfig tries in-cluster config first, falling back to the given
// kubeconfig path or $HOME/.kube/config.
func buildKubeConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
		if home := homedir.HomeDir(); home != "" {
			kubeconfigPath = home + "/.kube/config"
		}
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
}

// storeConfigFromEnv reads Postgres connection parameters with plain
// os.Getenv reads and defaults, no dedicated flag for each one.
func storeConfigFromEnv() store.Config {
	return store.Config{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvInt("POSTGRES_PORT", 5432),
		User:     getEnv("POSTGRES_USER", "strands"),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		Database: getEnv("POSTGRES_DB", "strands"),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
