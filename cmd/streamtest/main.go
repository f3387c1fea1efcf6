// streamtest connects to a configured push relay and prints each message
// with its classification and extracted symbols. Nothing is dispatched.
// Usage: go run ./cmd/streamtest --config configs/watcher.yaml [--listener push]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/rickgao/listing-watch/internal/config"
	"github.com/rickgao/listing-watch/internal/connection"
	"github.com/rickgao/listing-watch/internal/extract"
	"github.com/rickgao/listing-watch/internal/listener"
)

func main() {
	configPath := pflag.String("config", "configs/watcher.yaml", "path to config file")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before the config")
	name := pflag.String("listener", "", "listener name (default: first configured)")
	verbose := pflag.Bool("verbose", false, "print unclassified messages too")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_ = godotenv.Load(*envFile)

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	lc, ok := lo.Find(cfg.Listeners, func(l config.ListenerConfig) bool {
		return *name == "" || l.Name == *name
	})
	if !ok {
		logger.Error("no matching listener in config", "listener", *name)
		os.Exit(1)
	}

	chain := extract.DefaultChain()
	if len(lc.Grammars) > 0 {
		chain = extract.Chain{}
		for _, g := range lc.Grammars {
			parsed, err := extract.ParseGrammar(g)
			if err != nil {
				logger.Error("invalid grammar", "error", err)
				os.Exit(1)
			}
			chain = append(chain, parsed)
		}
	}
	classifier := listener.NewClassifier(lc.Markers)

	client := connection.DefaultClientConfig()
	client.URL = lc.URL
	if lc.SubscribeTimeout > 0 {
		client.HandshakeTimeout = lc.SubscribeTimeout
	}
	client.Header = make(http.Header)
	for k, v := range lc.Headers {
		client.Header.Set(k, v)
	}
	src, err := connection.NewSource(connection.SourceConfig{
		Client:    client,
		Subscribe: lc.Subscribe,
		Channels:  lc.Channels,
	}, logger)
	if err != nil {
		logger.Error("failed to build source", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := src.Subscribe(ctx)
	if err != nil {
		logger.Error("failed to subscribe", "url", lc.URL, "error", err)
		os.Exit(1)
	}
	defer sub.Close()

	logger.Info("streaming", "listener", lc.Name, "url", lc.URL, "markers", classifier.Markers())

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("stream ended", "error", err)
			}
			return
		}

		marker, matched := classifier.Match(msg.Text)
		if !matched {
			if *verbose {
				fmt.Printf("[%s] %-10s - %q\n", msg.ReceivedAt.Format("15:04:05.000"), msg.Channel, msg.Text)
			}
			continue
		}

		symbols, grammar := chain.Extract(msg.Text)
		fmt.Printf("[%s] %-10s + %q\n    marker=%q grammar=%s symbols=%s\n",
			msg.ReceivedAt.Format("15:04:05.000"), msg.Channel, msg.Text,
			marker, grammar, strings.Join(symbols, ","))
	}
}
