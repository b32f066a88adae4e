package ledger

import (
	"context"

	"btclotto/domain/entities"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Server exposes a MemoryLedger over the ledger gRPC protocol. Transfers are
// made on behalf of the principal in the caller metadata, defaulting to the
// ledger's own caller.
type Server struct {
	ledger *MemoryLedger
}

// NewGRPCServer creates a gRPC server serving the ledger
func NewGRPCServer(ledger *MemoryLedger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(jsonCodec{})}, opts...)
	server := grpc.NewServer(opts...)
	server.RegisterService(&serviceDesc, &Server{ledger: ledger})
	return server
}

type ledgerService interface {
	listTransfers(ctx context.Context, req *listTransfersRequest) (*listTransfersResponse, error)
	balanceOf(ctx context.Context, req *balanceRequest) (*balanceResponse, error)
	transfer(ctx context.Context, req *transferRequest) (*transferResponse, error)
	fee(ctx context.Context, req *feeRequest) (*feeResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ledgerService)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ListTransfers", methodListTransfers, (*Server).listTransfers),
		unaryMethod("BalanceOf", methodBalanceOf, (*Server).balanceOf),
		unaryMethod("Transfer", methodTransfer, (*Server).transfer),
		unaryMethod("Fee", methodFee, (*Server).fee),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}

func unaryMethod[Req, Resp any](name, fullMethod string, call func(*Server, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(*Server), ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(*Server), ctx, req.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

func (s *Server) listTransfers(ctx context.Context, req *listTransfersRequest) (*listTransfersResponse, error) {
	account, err := fromAccountMessage(req.Account)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	page, err := s.ledger.ListTransfers(ctx, account, req.Start, req.Limit)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp := &listTransfersResponse{
		Transfers: make([]transferMessage, 0, len(page.Transfers)),
		NextStart: page.NextStart,
	}
	for _, transfer := range page.Transfers {
		resp.Transfers = append(resp.Transfers, toTransferMessage(transfer))
	}
	return resp, nil
}

func (s *Server) balanceOf(ctx context.Context, req *balanceRequest) (*balanceResponse, error) {
	account, err := fromAccountMessage(req.Account)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	balance, err := s.ledger.BalanceOf(ctx, account)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &balanceResponse{Balance: balance}, nil
}

func (s *Server) fee(ctx context.Context, req *feeRequest) (*feeResponse, error) {
	fee, err := s.ledger.Fee(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &feeResponse{Fee: fee}, nil
}

func (s *Server) transfer(ctx context.Context, req *transferRequest) (*transferResponse, error) {
	args, err := fromTransferRequest(*req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	caller := s.ledger.caller
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(callerMetadataKey); len(values) > 0 {
			if caller, err = entities.ParsePrincipal(values[0]); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
		}
	}

	index, err := s.ledger.transferAs(caller, args)
	if err != nil {
		transferErr, ok := err.(*entities.TransferError)
		if !ok {
			return nil, status.Error(codes.Internal, err.Error())
		}
		log.WithFields(log.Fields{
			"caller": caller,
			"kind":   transferErr.Kind,
		}).Debug("Ledger rejected transfer")
		return &transferResponse{Error: &transferErrorMessage{
			Kind:        string(transferErr.Kind),
			DuplicateOf: transferErr.DuplicateOf,
			Message:     transferErr.Message,
		}}, nil
	}
	return &transferResponse{BlockIndex: &index}, nil
}

// WithCaller returns a context whose ledger transfers are made on behalf of caller
func WithCaller(ctx context.Context, caller entities.Principal) context.Context {
	return metadata.AppendToOutgoingContext(ctx, callerMetadataKey, caller.String())
}
