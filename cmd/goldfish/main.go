package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/bowerhall/goldfish/internal/config"
	"github.com/bowerhall/goldfish/internal/embedder"
	"github.com/bowerhall/goldfish/internal/graph"
	"github.com/bowerhall/goldfish/internal/journal"
	"github.com/bowerhall/goldfish/internal/llm"
	"github.com/bowerhall/goldfish/internal/logger"
	"github.com/bowerhall/goldfish/internal/nlu"
	"github.com/bowerhall/goldfish/internal/pipeline"
)

func init() {
	godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	responder, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		logger.Fatal("failed to create llm", "error", err)
	}

	extractorModel, err := llm.New(llm.Config{
		Provider: cfg.Extractor.Provider,
		APIKey:   cfg.Extractor.APIKey,
		Model:    cfg.Extractor.Model,
		BaseURL:  cfg.Extractor.BaseURL,
	})
	if err != nil {
		logger.Fatal("failed to create extractor", "error", err)
	}
	extractor := nlu.NewGenerative(extractorModel)

	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Fatal("failed to open journal", "error", err)
	}
	defer store.Close()

	emb, err := embedder.New(embedder.Config{
		Provider: cfg.Embedder.Provider,
		APIKey:   cfg.Embedder.APIKey,
		BaseURL:  cfg.Embedder.BaseURL,
		Model:    cfg.Embedder.Model,
	})
	if err != nil {
		logger.Fatal("failed to create embedder", "error", err)
	}
	if emb != nil {
		store.SetEmbedder(emb)
		logger.Debug("embedder configured", "provider", cfg.Embedder.Provider)
	} else {
		logger.Info("no embedder configured, semantic retrieval disabled")
	}

	ctx := context.Background()

	var graphClient *graph.Client
	if cfg.Graph.URI != "" {
		graphClient, err = graph.Connect(ctx, graph.Config{
			URI:      cfg.Graph.URI,
			User:     cfg.Graph.User,
			Password: cfg.Graph.Password,
			Database: cfg.Graph.Database,
		})
		if err != nil {
			logger.Warn("graph unavailable, continuing without it", "error", err)
			graphClient = nil
		} else {
			defer graphClient.Close(ctx)
			if err := graphClient.InitSchema(ctx); err != nil {
				logger.Warn("graph schema init failed", "error", err)
			} else {
				logger.Debug("graph connected", "uri", cfg.Graph.URI)
			}
		}
	} else {
		logger.Info("no graph configured, knowledge graph disabled")
	}

	p := pipeline.New(responder, extractor, store, graphClient, cfg.Pipeline)

	scheduler := cron.New()
	if store.HasEmbedder() && cfg.Pipeline.BackfillSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.Pipeline.BackfillSchedule, func() {
			p.Backfill(context.Background())
		}); err != nil {
			logger.Warn("invalid backfill schedule", "schedule", cfg.Pipeline.BackfillSchedule, "error", err)
		} else {
			scheduler.Start()
			defer scheduler.Stop()
			logger.Debug("backfill scheduled", "schedule", cfg.Pipeline.BackfillSchedule)
		}
	}

	logger.Info("goldfish started", "user", cfg.UserID, "journal", cfg.JournalPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("Goldfish is listening. Type /save to save the entry, /quit to exit.")
	fmt.Print("> ")

	for {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if done := handleLine(ctx, p, cfg.UserID, line); done {
				return
			}
			fmt.Print("> ")
		}
	}
}

func handleLine(ctx context.Context, p *pipeline.Pipeline, userID, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	switch {
	case line == "/quit" || line == "/exit":
		if p.Session(userID).Len() > 0 {
			fmt.Println("Unsaved conversation discarded.")
		}
		return true

	case line == "/save":
		entry, err := p.SaveEntry(ctx, userID)
		if err != nil {
			fmt.Printf("Could not save: %v\n", err)
			return false
		}
		fmt.Printf("Saved %q (%s)\n", entry.Title, entry.ID)
		return false

	case line == "/list":
		entries, err := p.Store().ListEntries(userID, 10)
		if err != nil {
			fmt.Printf("Could not list entries: %v\n", err)
			return false
		}
		if len(entries) == 0 {
			fmt.Println("No entries yet.")
			return false
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  %s\n", e.CreatedAt.Format("2006-01-02"), e.ID, e.Title)
		}
		return false

	case strings.HasPrefix(line, "/delete "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
		if err := p.Store().DeleteEntry(userID, id); err != nil {
			fmt.Printf("Could not delete: %v\n", err)
		} else {
			fmt.Println("Deleted.")
		}
		return false

	case strings.HasPrefix(line, "/"):
		fmt.Println("Commands: /save /list /delete <id> /quit")
		return false
	}

	result, err := p.HandleTurn(ctx, userID, line)
	if err != nil {
		fmt.Printf("Something went wrong: %v\n", err)
		return false
	}

	if result.Degraded {
		logger.Debug("turn served degraded", "stages", len(result.Stages))
	}
	fmt.Println(result.Response)

	return false
}
