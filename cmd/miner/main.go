// Package main provides the entry point for a mining peer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"mining-game/internal/chat"
	"mining-game/internal/config"
	"mining-game/internal/logger"
	"mining-game/internal/miner"
	"mining-game/internal/protocol"
)

var (
	name    string
	host    string
	channel string
	workers int
	debug   bool
)

func init() {
	flag.StringVar(&name, "name", "", "nickname on the chat server (required)")
	flag.StringVar(&host, "host", config.DefaultChatAddr, "chat server address")
	flag.StringVar(&channel, "channel", config.DefaultChannel, "channel the game is played in")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "concurrent search workers")
	flag.BoolVar(&debug, "debug", false, "verbose logging")
}

func main() {
	// Try to load .env from CWD if present; otherwise use environment as-is
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}
	flag.Parse()

	if name == "" {
		fmt.Fprintln(os.Stderr, "a miner needs a -name")
		flag.Usage()
		os.Exit(2)
	}
	channel = config.NormalizeChannel(channel)

	log := logger.New(debug, os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := chat.Dial(host, name, log.With("module", "chat"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect chat server: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()
	if err := client.JoinChannel(channel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to join %s: %v\n", channel, err)
		os.Exit(1)
	}
	// announce presence, as a plain chat message
	if err := client.SendMessage(channel, "HELLO"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to greet %s: %v\n", channel, err)
		os.Exit(1)
	}
	log.Info("mining", "addr", host, "channel", channel, "name", name, "workers", workers)

	pool := miner.NewPool(ctx, workers, log.With("module", "miner"))

	// Solutions go back out as submission lines on the channel.
	go func() {
		for res := range pool.Results() {
			line := protocol.EncodeSubmission(protocol.Submission{
				Difficulty: res.Challenge.Difficulty,
				MessageID:  res.Challenge.MessageID,
				Nonce:      res.Nonce,
			})
			if err := client.SendMessage(channel, line); err != nil {
				log.Error("submit failed", "message_id", res.Challenge.MessageID, "err", err)
				continue
			}
			log.Info("submitted",
				"message_id", res.Challenge.MessageID, "nonce", res.Nonce, "digest", res.Digest)
		}
	}()

	handler := func(source, command string, args []string) {
		if command != "PRIVMSG" || len(args) < 2 {
			return
		}
		target, text := args[0], args[len(args)-1]
		if target != channel || !protocol.IsChallenge(text) {
			return
		}
		ch, err := protocol.ParseChallenge(text)
		if err != nil {
			log.Info("ignoring malformed challenge", "from", source, "line", text, "err", err)
			return
		}
		log.Info("challenge received",
			"from", source, "message_id", ch.MessageID, "difficulty", ch.Difficulty, "message", ch.Message)
		pool.Enqueue(ch)
	}

	if err := client.Run(ctx, handler); err != nil && ctx.Err() == nil {
		log.Error("chat loop ended", "err", err)
	}
	log.Info("shutting down")
}
