package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/reqpilot/reqpilot/internal/agent"
	"github.com/reqpilot/reqpilot/internal/gateway"
	"github.com/reqpilot/reqpilot/internal/governance"
	"github.com/reqpilot/reqpilot/internal/mcp"
	"github.com/reqpilot/reqpilot/internal/observability"
	"github.com/reqpilot/reqpilot/internal/store"
	"github.com/reqpilot/reqpilot/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// stdioPipe glues a separate reader and writer into one duplex stream for
// the framed tool-provider protocol.
type stdioPipe struct {
	io.Reader
	io.Writer
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	serveTools := flag.Bool("serve-tools", false, "run the tool provider on stdio and exit")
	flag.Parse()

	if *serveTools {
		runToolServer()
		return
	}

	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tool provider: child process over stdio, or in-process over a pipe.
	var toolRW io.ReadWriter
	if len(cfg.Tools.Command) > 0 {
		cmd := exec.CommandContext(ctx, cfg.Tools.Command[0], cfg.Tools.Command[1:]...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			log.Fatal(err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			log.Fatal(err)
		}
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			log.Fatalf("failed to start tool provider %v: %v", cfg.Tools.Command, err)
		}
		toolRW = stdioPipe{stdout, stdin}
	} else {
		clientEnd, serverEnd := net.Pipe()
		docs := mcp.NewDocStore(map[string]string{
			mcp.RootRequirements: filepath.Join(cfg.App.Workspace, "docs", "requirements"),
			mcp.RootArchitecture: filepath.Join(cfg.App.Workspace, "docs", "architecture"),
		})
		go func() {
			if err := mcp.NewServer(docs).Serve(ctx, serverEnd); err != nil && ctx.Err() == nil {
				log.Printf("tool provider stopped: %v", err)
			}
		}()
		toolRW = clientEnd
	}

	client := mcp.NewClient(toolRW)
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Initialize(initCtx); err != nil {
		cancel()
		log.Fatalf("tool provider handshake failed: %v", err)
	}
	cancel()

	var history *store.HistoryStore
	if cfg.Memory.Path != "" {
		history, err = store.NewHistoryStore(cfg.Memory.Path)
		if err != nil {
			log.Fatal(err)
		}
		defer history.Close()
	}

	logger := observability.NewLogger()

	policy := governance.NewAllowlistPolicyEngine(agent.AllowedTools...)
	// Keep path traversal out of LLM-authored read parameters.
	_ = policy.DenyArguments(`\.\.`)

	var model llms.Model
	if cfg.LLMConfigured() {
		p := cfg.Provider
		opts := []openai.Option{
			openai.WithToken(p.APIKey),
			openai.WithBaseURL(p.BaseURL),
		}
		if p.APIType == "azure" {
			opts = append(opts, openai.WithAPIType(openai.APITypeAzure), openai.WithModel(p.Deployment))
		} else {
			opts = append(opts, openai.WithModel(p.Model))
		}
		m, err := openai.New(opts...)
		if err != nil {
			log.Printf("Warning: LLM backend unavailable, planning falls back to heuristics: %v", err)
		} else {
			model = m
		}
	}
	planner := agent.NewLLMPlanner(model, policy, logger)

	orchestrator := agent.NewOrchestrator(client, planner, history, logger)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := observability.ServeMetrics(cfg.Metrics.Addr); err != nil {
				log.Printf("metrics endpoint stopped: %v", err)
			}
		}()
	}

	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, orchestrator)
		if err != nil {
			log.Fatal(err)
		}
		go func() {
			if err := tg.Start(); err != nil {
				log.Printf("telegram gateway stopped: %v", err)
			}
		}()
		defer tg.Stop()
	}

	// Live resource dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	console := gateway.NewConsoleGateway(orchestrator)
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		if err := console.Start(); err != nil {
			log.Printf("console gateway stopped: %v", err)
		}
	}()

	select {
	case <-ctx.Done():
	case <-consoleDone:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelShutdown()
	_ = client.Shutdown(shutdownCtx)
	_ = client.Close()

	observability.CleanupTerminal()
	log.SetOutput(os.Stderr)
	log.Println("reqpilot stopped")
}

// runToolServer serves the document store over stdio, for hosting the
// provider as a child process.
func runToolServer() {
	log.SetOutput(os.Stderr)
	docs := mcp.NewDocStore(map[string]string{
		mcp.RootRequirements: envOr("REQPILOT_REQUIREMENTS_DIR", filepath.Join("docs", "requirements")),
		mcp.RootArchitecture: envOr("REQPILOT_ARCHITECTURE_DIR", filepath.Join("docs", "architecture")),
	})
	if err := mcp.NewServer(docs).Serve(context.Background(), stdioPipe{os.Stdin, os.Stdout}); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
