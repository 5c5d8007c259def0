// Command kagami is the interactive terminal agent.  It wires the config,
// the session store, telemetry, the tool registry, and the composer UI; the
// model transport and login flows are provided by external collaborators.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/bdobrica/Kagami/common/crypto"
	"github.com/bdobrica/Kagami/common/environment"
	"github.com/bdobrica/Kagami/common/version"
	"github.com/bdobrica/Kagami/internal/kagami/config"
	"github.com/bdobrica/Kagami/internal/kagami/gateway"
	"github.com/bdobrica/Kagami/internal/kagami/gitops"
	"github.com/bdobrica/Kagami/internal/kagami/observability"
	"github.com/bdobrica/Kagami/internal/kagami/session"
	"github.com/bdobrica/Kagami/internal/kagami/store"
	"github.com/bdobrica/Kagami/internal/kagami/telemetry"
	"github.com/bdobrica/Kagami/internal/kagami/tools"
	"github.com/bdobrica/Kagami/internal/kagami/tools/builtin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kagami:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := environment.StringOr("KAGAMI_CONFIG", filepath.Join(defaultHome(), "kagami.yaml"))
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting kagami", "version", version.Info())

	if err := os.MkdirAll(cfg.KagamiHome, 0o700); err != nil {
		return fmt.Errorf("create home %q: %w", cfg.KagamiHome, err)
	}

	masterKey, err := crypto.LoadMasterKey()
	if err != nil {
		// No persistent key: encrypt with an ephemeral one, so patterns
		// added this session do not survive a restart but never hit disk in
		// the clear.
		slog.Warn("KAGAMI_MASTER_KEY not set; session patterns will not persist across restarts", "err", err)
		masterKey = make([]byte, crypto.KeySize)
		if _, err := rand.Read(masterKey); err != nil {
			return fmt.Errorf("generate ephemeral key: %w", err)
		}
	}

	sessionStore, err := store.Open(filepath.Join(cfg.KagamiHome, "kagami.db"), masterKey)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	ctx := context.Background()

	if cfg.Telemetry.Endpoint != "" {
		shutdown, err := setupTracing(ctx, cfg.Telemetry)
		if err != nil {
			slog.Warn("tracing disabled", "err", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Session-added patterns layer over the configured ones.
	var extraSecret, extraAllow []string
	if patterns, err := sessionStore.ListPatterns(ctx); err != nil {
		slog.Warn("could not load persisted exclusion patterns", "err", err)
	} else {
		for _, pattern := range patterns {
			if pattern.Allowlist {
				extraAllow = append(extraAllow, pattern.Value)
			} else {
				extraSecret = append(extraSecret, pattern.Value)
			}
		}
	}

	builder := tools.NewBuilder()
	builtin.Register(builder, nil)
	specs, registry := builder.Build()
	slog.Info("tool registry ready", "specs", len(specs))
	dispatcher := tools.NewDispatcher(registry, telemetry.NewManager())

	sess := session.NewLocal(nil, patternStoreAdapter{store: sessionStore}, nil)
	slog.Info("session ready", "conversation_id", sess.ConversationID())

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve cwd: %w", err)
	}
	workspaceRoot := cwd
	if root, err := gitops.ResolveWorktreeRoot(ctx, cwd); err == nil {
		workspaceRoot = root
	}
	currentBranch, _ := gitops.CurrentBranch(ctx, cwd)
	branches, _ := gitops.ListBranches(ctx, cwd)

	sharedDirs := cfg.Worktrees.SharedDirs
	if persisted, err := sessionStore.SharedDirs(ctx); err == nil && len(persisted) > 0 {
		sharedDirs = persisted
	}

	app := newApp(appConfig{
		cfg:            cfg,
		store:          sessionStore,
		session:        sess,
		dispatcher:     dispatcher,
		resolver:       gateway.NewPathResolver(cfg.SensitivePaths),
		counters:       gateway.NewCounters(),
		workspaceRoot:  workspaceRoot,
		cwd:            cwd,
		currentBranch:  currentBranch,
		branches:       branches,
		sharedDirs:     sharedDirs,
		extraSecret:    extraSecret,
		extraAllow:     extraAllow,
	})

	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// patternStoreAdapter narrows the sqlite store onto the session's
// pattern-persistence surface.
type patternStoreAdapter struct {
	store *store.Store
}

func (a patternStoreAdapter) AddPattern(ctx context.Context, value string, allowlist bool) error {
	_, err := a.store.AddPattern(ctx, value, allowlist)
	return err
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kagami"
	}
	return filepath.Join(home, ".kagami")
}

// setupTracing installs the OTLP/gRPC trace exporter behind the global
// provider and returns its shutdown hook.
func setupTracing(ctx context.Context, cfg config.Telemetry) (func(context.Context) error, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
