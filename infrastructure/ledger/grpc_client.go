package ledger

import (
	"context"
	"fmt"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Metadata keys understood by the ledger service
const (
	canisterMetadataKey = "x-ledger-canister"
	callerMetadataKey   = "x-caller-principal"
)

// GRPCClient talks to the external token ledger over gRPC
type GRPCClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

var _ interfaces.LedgerClient = (*GRPCClient)(nil)

// NewGRPCClient creates a ledger client for the ledger canister at addr.
// Extra dial options are appended after the defaults.
func NewGRPCClient(addr, canisterID string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
		withClientUnaryInterceptor(canisterID),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client for %s: %w", addr, err)
	}

	log.WithFields(log.Fields{
		"addr":       addr,
		"canisterID": canisterID,
	}).Info("Ledger client initialized")

	return &GRPCClient{conn: conn, timeout: timeout}, nil
}

// Close closes the underlying connection
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) ListTransfers(ctx context.Context, account entities.LedgerAccount, start uint64, limit int) (*entities.TransferPage, error) {
	req := &listTransfersRequest{Account: toAccountMessage(account), Start: start, Limit: limit}
	var resp listTransfersResponse
	if err := c.invoke(ctx, methodListTransfers, req, &resp); err != nil {
		return nil, err
	}

	page := &entities.TransferPage{
		Transfers: make([]entities.LedgerTransfer, 0, len(resp.Transfers)),
		NextStart: resp.NextStart,
	}
	for _, msg := range resp.Transfers {
		transfer, err := fromTransferMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed transfer at block %d: %w", entities.ErrExternalCallFailed, msg.BlockIndex, err)
		}
		page.Transfers = append(page.Transfers, transfer)
	}
	return page, nil
}

func (c *GRPCClient) BalanceOf(ctx context.Context, account entities.LedgerAccount) (uint64, error) {
	var resp balanceResponse
	if err := c.invoke(ctx, methodBalanceOf, &balanceRequest{Account: toAccountMessage(account)}, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *GRPCClient) Fee(ctx context.Context) (uint64, error) {
	var resp feeResponse
	if err := c.invoke(ctx, methodFee, &feeRequest{}, &resp); err != nil {
		return 0, err
	}
	return resp.Fee, nil
}

func (c *GRPCClient) Transfer(ctx context.Context, args entities.TransferArgs) (uint64, error) {
	req := toTransferRequest(args)
	var resp transferResponse
	if err := c.invoke(ctx, methodTransfer, &req, &resp); err != nil {
		return 0, err
	}

	if resp.Error != nil {
		return 0, &entities.TransferError{
			Kind:        entities.TransferErrorKind(resp.Error.Kind),
			DuplicateOf: resp.Error.DuplicateOf,
			Message:     resp.Error.Message,
		}
	}
	if resp.BlockIndex == nil {
		return 0, fmt.Errorf("%w: transfer response without block index", entities.ErrExternalCallFailed)
	}
	return *resp.BlockIndex, nil
}

// invoke performs a unary call bounded by the client timeout
func (c *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return fmt.Errorf("%w: %s: %w", entities.ErrExternalCallFailed, method, err)
	}
	return nil
}

func withClientUnaryInterceptor(canisterID string) grpc.DialOption {
	return grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		ctx = metadata.AppendToOutgoingContext(ctx, canisterMetadataKey, canisterID)

		err := invoker(ctx, method, req, reply, cc, opts...)

		entry := log.WithFields(log.Fields{
			"method":   method,
			"duration": time.Since(start),
		})
		if err != nil {
			entry.WithError(err).Warn("Ledger call failed")
		} else {
			entry.Debug("Ledger call completed")
		}
		return err
	})
}
