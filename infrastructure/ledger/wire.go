package ledger

import (
	"time"

	"btclotto/domain/entities"
)

// Full method names of the ledger service
const (
	serviceName         = "ledger.v1.Ledger"
	methodListTransfers = "/" + serviceName + "/ListTransfers"
	methodBalanceOf     = "/" + serviceName + "/BalanceOf"
	methodTransfer      = "/" + serviceName + "/Transfer"
	methodFee           = "/" + serviceName + "/Fee"
)

type accountMessage struct {
	Owner      string `json:"owner"`
	Subaccount string `json:"subaccount,omitempty"` // hex, omitted for the default subaccount
}

type transferMessage struct {
	BlockIndex     uint64         `json:"block_index"`
	TxHash         string         `json:"tx_hash"`
	From           accountMessage `json:"from"`
	To             accountMessage `json:"to"`
	Amount         uint64         `json:"amount"`
	Fee            uint64         `json:"fee"`
	Memo           []byte         `json:"memo,omitempty"`
	TimestampNanos int64          `json:"timestamp_nanos"`
}

type listTransfersRequest struct {
	Account accountMessage `json:"account"`
	Start   uint64         `json:"start"`
	Limit   int            `json:"limit"`
}

type listTransfersResponse struct {
	Transfers []transferMessage `json:"transfers"`
	NextStart uint64            `json:"next_start"`
}

type balanceRequest struct {
	Account accountMessage `json:"account"`
}

type balanceResponse struct {
	Balance uint64 `json:"balance"`
}

type feeRequest struct{}

type feeResponse struct {
	Fee uint64 `json:"fee"`
}

type transferRequest struct {
	FromSubaccount string         `json:"from_subaccount,omitempty"`
	To             accountMessage `json:"to"`
	Amount         uint64         `json:"amount"`
	Fee            *uint64        `json:"fee,omitempty"`
	Memo           []byte         `json:"memo,omitempty"`
	CreatedAtTime  *uint64        `json:"created_at_time,omitempty"`
}

type transferErrorMessage struct {
	Kind        string `json:"kind"`
	DuplicateOf uint64 `json:"duplicate_of,omitempty"`
	Message     string `json:"message,omitempty"`
}

type transferResponse struct {
	BlockIndex *uint64               `json:"block_index,omitempty"`
	Error      *transferErrorMessage `json:"error,omitempty"`
}

func toAccountMessage(account entities.LedgerAccount) accountMessage {
	msg := accountMessage{Owner: account.Owner.String()}
	if !account.Subaccount.IsDefault() {
		msg.Subaccount = account.Subaccount.Hex()
	}
	return msg
}

func fromAccountMessage(msg accountMessage) (entities.LedgerAccount, error) {
	owner, err := entities.ParsePrincipal(msg.Owner)
	if err != nil {
		return entities.LedgerAccount{}, err
	}
	account := entities.LedgerAccount{Owner: owner}
	if msg.Subaccount != "" {
		if account.Subaccount, err = entities.ParseSubaccount(msg.Subaccount); err != nil {
			return entities.LedgerAccount{}, err
		}
	}
	return account, nil
}

func toTransferMessage(transfer entities.LedgerTransfer) transferMessage {
	return transferMessage{
		BlockIndex:     transfer.BlockIndex,
		TxHash:         transfer.TxHash,
		From:           toAccountMessage(transfer.From),
		To:             toAccountMessage(transfer.To),
		Amount:         transfer.Amount,
		Fee:            transfer.Fee,
		Memo:           transfer.Memo,
		TimestampNanos: transfer.Timestamp.UnixNano(),
	}
}

func fromTransferMessage(msg transferMessage) (entities.LedgerTransfer, error) {
	from, err := fromAccountMessage(msg.From)
	if err != nil {
		return entities.LedgerTransfer{}, err
	}
	to, err := fromAccountMessage(msg.To)
	if err != nil {
		return entities.LedgerTransfer{}, err
	}
	return entities.LedgerTransfer{
		BlockIndex: msg.BlockIndex,
		TxHash:     msg.TxHash,
		From:       from,
		To:         to,
		Amount:     msg.Amount,
		Fee:        msg.Fee,
		Memo:       msg.Memo,
		Timestamp:  time.Unix(0, msg.TimestampNanos).UTC(),
	}, nil
}

func toTransferRequest(args entities.TransferArgs) transferRequest {
	req := transferRequest{
		To:            toAccountMessage(args.To),
		Amount:        args.Amount,
		Fee:           args.Fee,
		Memo:          args.Memo,
		CreatedAtTime: args.CreatedAtTime,
	}
	if args.FromSubaccount != nil {
		req.FromSubaccount = args.FromSubaccount.Hex()
	}
	return req
}

func fromTransferRequest(req transferRequest) (entities.TransferArgs, error) {
	to, err := fromAccountMessage(req.To)
	if err != nil {
		return entities.TransferArgs{}, err
	}
	args := entities.TransferArgs{
		To:            to,
		Amount:        req.Amount,
		Fee:           req.Fee,
		Memo:          req.Memo,
		CreatedAtTime: req.CreatedAtTime,
	}
	if req.FromSubaccount != "" {
		sub, err := entities.ParseSubaccount(req.FromSubaccount)
		if err != nil {
			return entities.TransferArgs{}, err
		}
		args.FromSubaccount = &sub
	}
	return args, nil
}
