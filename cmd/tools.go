package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"btclotto/api"
	"btclotto/config"
	"btclotto/domain/entities"
	"btclotto/infrastructure"
	"btclotto/infrastructure/ledger"

	log "github.com/sirupsen/logrus"
)

// RunLedgerSimulator serves an in-memory ledger over gRPC on LEDGER_ADDR.
// Transfers without caller metadata are made on behalf of the treasury.
// mint optionally credits "<account>=<amount>" pairs at startup.
func RunLedgerSimulator(ctx context.Context, mint []string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	treasury, err := cfg.Treasury()
	if err != nil {
		return err
	}

	memory := ledger.NewMemoryLedger(treasury, cfg.LedgerFee)
	for _, arg := range mint {
		account, amount, err := parseMint(arg)
		if err != nil {
			return err
		}
		index := memory.Mint(account, amount)
		log.WithFields(log.Fields{
			"account":    account.String(),
			"amount":     amount,
			"blockIndex": index,
		}).Info("Minted")
	}

	listener, err := net.Listen("tcp", cfg.LedgerAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.LedgerAddr, err)
	}

	server := ledger.NewGRPCServer(memory)
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":     cfg.LedgerAddr,
			"treasury": treasury,
			"fee":      cfg.LedgerFee,
		}).Info("Ledger simulator listening")
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		log.Info("Stopping ledger simulator...")
		server.GracefulStop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("ledger simulator stopped: %w", err)
	}
}

func parseMint(arg string) (entities.LedgerAccount, uint64, error) {
	accountText, amountText, ok := strings.Cut(arg, "=")
	if !ok {
		return entities.LedgerAccount{}, 0, fmt.Errorf("mint must be <account>=<amount>, got %q", arg)
	}
	account, err := entities.ParseLedgerAccount(accountText)
	if err != nil {
		return entities.LedgerAccount{}, 0, fmt.Errorf("invalid mint account: %w", err)
	}
	amount, err := strconv.ParseUint(amountText, 10, 64)
	if err != nil {
		return entities.LedgerAccount{}, 0, fmt.Errorf("invalid mint amount: %w", err)
	}
	return account, amount, nil
}

// IssueToken signs a bearer token for principal with JWT_SECRET
func IssueToken(principal string, ttl time.Duration) (string, error) {
	cfg := config.Get()
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("JWT_SECRET is not set")
	}

	owner, err := entities.ParsePrincipal(principal)
	if err != nil {
		return "", err
	}
	return api.IssueToken(cfg.JWTSecret, owner, ttl)
}

// TailEvents logs every domain event published on NATS until ctx is done
func TailEvents(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer client.Close()

	mapper := infrastructure.NewEventSubjectMapper()
	for _, subject := range mapper.GetAllSubjects() {
		err := client.Subscribe(subject, func(data []byte) error {
			var envelope infrastructure.EventEnvelope
			if err := json.Unmarshal(data, &envelope); err != nil {
				log.WithError(err).WithField("subject", subject).Warn("Skipping malformed event")
				return nil
			}
			log.WithFields(log.Fields{
				"subject":   subject,
				"eventType": envelope.EventType,
				"eventID":   envelope.EventID,
				"payload":   string(envelope.Payload),
			}).Info("Event")
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	<-ctx.Done()
	return nil
}
