package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/kabar/internal/api"
	"github.com/kalambet/kabar/internal/config"
	"github.com/kalambet/kabar/internal/corpus"
	"github.com/kalambet/kabar/internal/features"
	"github.com/kalambet/kabar/internal/model"
	"github.com/kalambet/kabar/internal/normalize"
	"github.com/kalambet/kabar/internal/storage"
	"github.com/kalambet/kabar/internal/trainer"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the kabar server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running kabar server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show kabar server and model status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "kabar.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// newLogger builds the process logger from the log section of the config.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newNormalizer extends the built-in stop words with the configured file.
func newNormalizer(cfg config.CorpusConfig) (*normalize.Normalizer, error) {
	var opts []normalize.Option
	if cfg.StopwordsFile != "" {
		words, err := normalize.LoadTermsFile(cfg.StopwordsFile)
		if err != nil {
			return nil, fmt.Errorf("loading stop words: %w", err)
		}
		opts = append(opts, normalize.WithStopwords(words...))
	}
	return normalize.New(opts...), nil
}

func runServer(withMCP bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("starting kabar", "version", version, "data_dir", cfg.Storage.DataDir)

	lock, err := storage.LockDataDir(cfg.Storage.DataDir)
	if errors.Is(err, storage.ErrLocked) {
		if pid, pidErr := readPIDFile(pidFilePath(cfg.Storage.DataDir)); pidErr == nil {
			printWarning("kabar is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("kabar is already running on data dir %s", cfg.Storage.DataDir)
		return err
	}
	if err != nil {
		return fmt.Errorf("locking data dir: %w", err)
	}
	defer lock.Unlock()

	pidPath := pidFilePath(cfg.Storage.DataDir)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()

	normalizer, err := newNormalizer(cfg.Corpus)
	if err != nil {
		return err
	}
	cats, err := cfg.CategorySet()
	if err != nil {
		return err
	}

	mgr := model.NewManager(corpus.NewSource(store), normalizer, cats, model.Options{
		K: cfg.Model.Neighbors,
		Features: features.Options{
			MaxFeatures: cfg.Model.MaxFeatures,
			NGramMax:    cfg.Model.NGramMax,
		},
		CacheSize: cfg.Model.CacheSize,
		Logger:    logger.With("component", "model"),
	})
	svc := corpus.NewService(store, mgr, cats, logger.With("component", "corpus"))

	if cfg.Corpus.Seed {
		if _, err := svc.Seed(ctx); err != nil {
			return fmt.Errorf("seeding corpus: %w", err)
		}
	}

	// The first fit runs before the listener opens so a non-empty corpus is
	// classifiable from the first request.
	if _, err := mgr.Retrain(ctx); errors.Is(err, model.ErrEmptyCorpus) {
		logger.Warn("corpus is empty, classification is unavailable until labeled news is added")
	} else if err != nil {
		return fmt.Errorf("initial training: %w", err)
	}

	interval, err := cfg.RetrainInterval()
	if err != nil {
		return err
	}
	if interval > 0 {
		worker := trainer.NewWorker(store, mgr, interval)
		go worker.Run(ctx)
	}

	handler := api.NewHandler(api.Deps{
		Corpus: svc,
		Model:  mgr,
		Store:  store,
		Token:  cfg.Server.APIToken,
		Logger: logger.With("component", "api"),
	})
	if cfg.Server.APIToken == "" {
		logger.Warn("no API token configured, mutating endpoints are unauthenticated")
	}

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Corpus:  svc,
			Model:   mgr,
			Version: version,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MCP stdio server error", "error", err)
			}
		}()
		logger.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("kabar listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("kabar is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop kabar (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to kabar (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	client.httpClient.Timeout = 2 * time.Second

	h, err := fetchHealth(ctx, client)
	if err != nil {
		printStatus("Server", "stopped")
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	}

	printStatus("Server", "running at %s", client.baseURL)
	printStatus("Model", "%s", h.Model.State)
	if h.Model.Ready {
		printStatus("Generation", "%d", h.Model.Generation)
		printStatus("Documents", "%d", h.Model.Documents)
		if h.Model.TrainedAt != nil {
			printStatus("Trained", "%s", h.Model.TrainedAt.Local().Format(time.RFC3339))
		}
	}
	if h.Model.LastError != "" {
		printStatus("Last error", "%s", colorize(colorRed, h.Model.LastError))
	}
	printStatus("Categories", "%s", cfg.Corpus.Categories)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

type healthResponse struct {
	Status string            `json:"status"`
	Model  api.ModelResponse `json:"model"`
}

func fetchHealth(ctx context.Context, c *apiClient) (healthResponse, error) {
	var h healthResponse
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return h, err
	}
	return h, decodeJSON(resp, &h)
}
