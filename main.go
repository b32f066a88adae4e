package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"btclotto/cmd"
	"btclotto/database"
)

const usage = `usage: btclotto [command]

commands:
  serve                          run the lottery service (default)
  migrate up|down [steps]|status manage the database schema
  ledger-sim [account=amount...] serve an in-memory ledger over gRPC
  token <principal> [ttl]        issue a bearer token for principal
  events                         log events published on NATS`

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "migrate":
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error:", err)
		}
		return
	case "token":
		if err := handleTokenCommand(); err != nil {
			log.Fatal("Token error:", err)
		}
		return
	case "serve", "ledger-sim", "events":
	case "help", "-h", "--help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	var err error
	switch command {
	case "ledger-sim":
		err = cmd.RunLedgerSimulator(ctx, os.Args[2:])
	case "events":
		err = cmd.TailEvents(ctx)
	default:
		err = cmd.Run(ctx)
	}
	if err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: btclotto migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func handleTokenCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: btclotto token <principal> [ttl]")
	}

	ttl := 24 * time.Hour
	if len(os.Args) > 3 {
		parsed, err := time.ParseDuration(os.Args[3])
		if err != nil {
			return fmt.Errorf("invalid ttl: %w", err)
		}
		ttl = parsed
	}

	token, err := cmd.IssueToken(os.Args[2], ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
