// Package main provides the entry point for the mining game broadcaster.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/joho/godotenv"

	"mining-game/internal/chat"
	"mining-game/internal/config"
	dbpkg "mining-game/internal/db"
	"mining-game/internal/game"
	"mining-game/internal/ledger"
	"mining-game/internal/logger"
	"mining-game/internal/models"
	"mining-game/internal/protocol"
	"mining-game/internal/ratelimit"
	"mining-game/internal/tui"
)

const (
	// updateBufferSize sizes the channels between game, chat and console.
	updateBufferSize = 16
	// tuiCloseDelay gives the TUI a moment to process the channel close.
	tuiCloseDelay = 200 * time.Millisecond
	// logFileName collects logs while the TUI owns the terminal.
	logFileName = "broadcaster.log"
)

// channelAnnouncer is the game's voice on the shared channel.
type channelAnnouncer struct {
	client  *chat.Client
	channel string
}

func (a channelAnnouncer) Announce(text string) error {
	return a.client.SendMessage(a.channel, text)
}

func (a channelAnnouncer) Notice(user, text string) error {
	return a.client.Notice(user, text)
}

func main() {
	// Try to load .env from CWD if present; otherwise use environment as-is
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}

	cfg := config.Load()

	// Logs go to a file so they cannot interfere with the TUI
	log, logFile := logger.NewFile(cfg.Debug, logFileName)
	if logFile != nil {
		defer logFile.Close()
	}

	fmt.Printf("Mining game broadcaster starting...\n")
	fmt.Printf("Config loaded: %s\n", cfg.DebugString())
	fmt.Printf("Logs written to %s\n", logFileName)

	gormDB, err := dbpkg.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
		os.Exit(1)
	}
	var store ledger.Store
	if gormDB != nil {
		if err := dbpkg.AutoMigrate(gormDB); err != nil {
			fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
			os.Exit(1)
		}
		store = ledger.NewSQLStore(gormDB)
		log.Info("ledger database connected", "dialect", cfg.DBDialect)
	} else {
		store = ledger.NewMemStore()
		log.Info("DATABASE_URL not provided - ledger is in-memory")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := chat.Dial(cfg.ChatAddr, cfg.Nick, log.With("module", "chat"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect chat server: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()
	if err := client.JoinChannel(cfg.Channel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to join %s: %v\n", cfg.Channel, err)
		os.Exit(1)
	}
	log.Info("joined channel", "addr", cfg.ChatAddr, "channel", cfg.Channel, "nick", cfg.Nick)

	g := game.New(store, ratelimit.New(cfg.Cooldown),
		channelAnnouncer{client: client, channel: cfg.Channel},
		cfg.Difficulty, log.With("module", "game"))

	// Create channel for TUI updates (TUI is always enabled)
	updates := make(chan interface{}, updateBufferSize)
	commands := make(chan tui.Command, updateBufferSize)
	// Submission outcomes cross from the chat read goroutine to the main
	// loop here; only the main loop writes to updates, so the close below
	// is safe.
	activity := make(chan string, updateBufferSize)

	// Start TUI in a goroutine
	go func() {
		if err := tui.Run(updates, commands); err != nil {
			log.Error("console error", "err", err)
		}
		// TUI exited, cancel context to trigger shutdown
		cancel()
	}()

	go func() {
		err := client.Run(ctx, submissionHandler(g, cfg.Channel, log.With("module", "chat"), activity))
		if err != nil && ctx.Err() == nil {
			log.Error("chat loop ended", "err", err)
		}
		cancel()
	}()

	pushSnapshot(g, cfg, updates, log)

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false

		case cmd := <-commands:
			runCommand(cmd, g, client, cfg, updates, log)
			pushSnapshot(g, cfg, updates, log)

		case text := <-activity:
			pushEvent(updates, text)
			pushSnapshot(g, cfg, updates, log)
		}
	}

	log.Info("shutting down")

	// Close TUI update channel to stop sending updates
	close(updates)
	// Give TUI a moment to process the close and quit
	time.Sleep(tuiCloseDelay)

	_ = os.Stderr.Sync()
	_ = os.Stdout.Sync()
}

// runCommand executes one admin action from the console.
func runCommand(cmd tui.Command, g *game.Game, client *chat.Client, cfg config.Config, updates chan<- interface{}, log cmtlog.Logger) {
	switch cmd {
	case tui.CommandNewTransaction:
		tx, err := g.CreateTransaction()
		if err != nil {
			pushEvent(updates, "transaction create failed, see log")
			return
		}
		if err := client.SendMessage(cfg.Channel, protocol.EncodeChallenge(tx)); err != nil {
			log.Error("challenge broadcast failed", "message_id", tx.MessageID, "err", err)
			pushEvent(updates, fmt.Sprintf("%s created but broadcast failed", tx.MessageID))
			return
		}
		pushEvent(updates, fmt.Sprintf("%s issued at difficulty %d", tx.MessageID, tx.Difficulty))

	case tui.CommandRaiseDifficulty:
		if err := g.SetDifficulty(g.Difficulty() + 1); err == nil {
			pushEvent(updates, fmt.Sprintf("difficulty now %d", g.Difficulty()))
		}

	case tui.CommandLowerDifficulty:
		if err := g.SetDifficulty(g.Difficulty() - 1); err == nil {
			pushEvent(updates, fmt.Sprintf("difficulty now %d", g.Difficulty()))
		}
	}
}

// submissionHandler feeds channel submissions into the game and reports
// outcomes to the main loop. Everything else on the channel is chatter and
// ignored.
func submissionHandler(g *game.Game, channel string, log cmtlog.Logger, activity chan<- string) chat.Handler {
	return func(source, command string, args []string) {
		if command != "PRIVMSG" || source == "" || len(args) < 2 {
			return
		}
		target, text := args[0], args[len(args)-1]
		if target != channel || !protocol.IsSubmission(text) {
			return
		}
		sub, err := protocol.ParseSubmission(text)
		if err != nil {
			log.Info("malformed submission discarded", "user", source, "line", text, "err", err)
			return
		}
		log.Debug("submission received",
			"user", source, "message_id", sub.MessageID,
			"claimed_difficulty", sub.Difficulty, "nonce", sub.Nonce)

		result, err := g.SubmitProof(source, sub.MessageID, sub.Nonce)
		if err != nil {
			log.Error("submission processing failed",
				"user", source, "message_id", sub.MessageID, "err", err)
		}
		select {
		case activity <- fmt.Sprintf("%s: %s from %s", sub.MessageID, result, source):
		default:
		}
	}
}

// pushSnapshot rebuilds the board state from the ledger and hands it to the
// console, dropping the update when the console is behind.
func pushSnapshot(g *game.Game, cfg config.Config, updates chan<- interface{}, log cmtlog.Logger) {
	txs, err := g.Transactions()
	if err != nil {
		log.Error("transactions read failed", "err", err)
		return
	}
	awards, err := g.Awards()
	if err != nil {
		log.Error("awards read failed", "err", err)
		return
	}
	scores, err := g.Scores()
	if err != nil {
		log.Error("scores read failed", "err", err)
		return
	}

	winners := make(map[uint]models.Award, len(awards))
	for _, award := range awards {
		winners[award.TransactionID] = award
	}

	snap := tui.Snapshot{
		Channel:      cfg.Channel,
		Nick:         cfg.Nick,
		Difficulty:   g.Difficulty(),
		Transactions: make([]tui.TransactionRow, 0, len(txs)),
		Scores:       make([]tui.ScoreRow, 0, len(scores)),
	}
	for _, tx := range txs {
		row := tui.TransactionRow{
			MessageID:  tx.MessageID,
			Difficulty: tx.Difficulty,
			Message:    tx.Message,
		}
		if award, ok := winners[tx.ID]; ok {
			row.Winner = award.UserID
			row.Nonce = award.Nonce
		}
		snap.Transactions = append(snap.Transactions, row)
	}
	for _, score := range scores {
		snap.Scores = append(snap.Scores, tui.ScoreRow{UserID: score.UserID, Awards: score.Awards})
	}

	select {
	case updates <- snap:
	default:
	}
}

// pushEvent appends one line to the console activity feed.
func pushEvent(updates chan<- interface{}, text string) {
	select {
	case updates <- tui.Event{At: time.Now(), Text: text}:
	default:
	}
}
