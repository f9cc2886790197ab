// Command viewer dumps a conversation transcript straight from the
// Badger store, for operators debugging delivery issues without going
// through the HTTP API.
//
// Usage: viewer <userA> <userB>
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"chat-relay/internal"
	"chat-relay/repositories"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: viewer <userA> <userB>")
		os.Exit(2)
	}
	userA, userB := os.Args[1], os.Args[2]

	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in read-only mode.
	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	repository := repositories.NewMessageRepository(db, logger, nil)

	messages, err := repository.GetTranscript(userA, userB)
	if err != nil {
		log.Fatalf("Failed to load transcript: %v", err)
	}
	if len(messages) == 0 {
		color.Yellow.Printf("No messages between %s and %s\n", userA, userB)
		return
	}

	color.Green.Printf("Transcript %s <-> %s (%d messages)\n", userA, userB, len(messages))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Sender", "Receiver", "Text"})
	table.SetAutoWrapText(false)
	for _, message := range messages {
		table.Append([]string{
			message.CreatedAt.Format("2006-01-02 15:04:05"),
			message.Sender,
			message.Receiver,
			message.Text,
		})
	}
	table.Render()
}
