package entities

import (
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/aviate-labs/agent-go/principal"
)

const (
	// MaxPrincipalLength is the maximum length of a principal in bytes
	MaxPrincipalLength = 29

	// SubaccountLength is the fixed length of a ledger subaccount
	SubaccountLength = 32
)

// checksumEncoding renders ledger account checksums
var checksumEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is the canonical textual form of an Internet Computer principal.
// Values obtained from ParsePrincipal or PrincipalFromBytes are always valid.
type Principal string

// AnonymousPrincipal identifies unauthenticated callers and never owns an account
const AnonymousPrincipal Principal = "2vxsx-fae"

// PrincipalFromBytes encodes raw principal bytes into their textual form
func PrincipalFromBytes(raw []byte) (Principal, error) {
	if len(raw) > MaxPrincipalLength {
		return "", fmt.Errorf("principal too long: %d bytes", len(raw))
	}
	return Principal(principal.Principal{Raw: raw}.String()), nil
}

// ParsePrincipal validates and normalizes a textual principal
func ParsePrincipal(text string) (Principal, error) {
	raw, err := decodePrincipal(text)
	if err != nil {
		return "", err
	}

	canonical, err := PrincipalFromBytes(raw)
	if err != nil {
		return "", err
	}
	if string(canonical) != text {
		return "", fmt.Errorf("principal %q is not in canonical form", text)
	}

	return canonical, nil
}

func decodePrincipal(text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("principal is empty")
	}

	decoded, err := principal.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("invalid principal %q: %w", text, err)
	}
	if len(decoded.Raw) > MaxPrincipalLength {
		return nil, fmt.Errorf("invalid principal %q: too long", text)
	}
	return decoded.Raw, nil
}

// Bytes returns the raw principal bytes
func (p Principal) Bytes() ([]byte, error) {
	return decodePrincipal(string(p))
}

// IsAnonymous returns true for the anonymous caller principal
func (p Principal) IsAnonymous() bool {
	return p == AnonymousPrincipal
}

// String returns the textual form
func (p Principal) String() string {
	return string(p)
}

// Subaccount is a 32 byte ledger subaccount
type Subaccount [SubaccountLength]byte

// IsDefault returns true for the all-zero default subaccount
func (s Subaccount) IsDefault() bool {
	return s == Subaccount{}
}

// Hex returns the full hex encoding of the subaccount
func (s Subaccount) Hex() string {
	return hex.EncodeToString(s[:])
}

// ParseSubaccount parses a hex subaccount, left padding short values with zeros
func ParseSubaccount(text string) (Subaccount, error) {
	var sub Subaccount
	if len(text) > SubaccountLength*2 {
		return sub, fmt.Errorf("subaccount %q is longer than %d bytes", text, SubaccountLength)
	}
	if len(text)%2 == 1 {
		text = "0" + text
	}

	raw, err := hex.DecodeString(text)
	if err != nil {
		return sub, fmt.Errorf("invalid subaccount %q: %w", text, err)
	}
	copy(sub[SubaccountLength-len(raw):], raw)
	return sub, nil
}

// DepositSubaccount derives the per-user deposit subaccount of the treasury
// using the principal-to-subaccount convention: length byte, principal bytes,
// zero padding.
func DepositSubaccount(owner Principal) (Subaccount, error) {
	var sub Subaccount
	raw, err := owner.Bytes()
	if err != nil {
		return sub, fmt.Errorf("failed to derive deposit subaccount: %w", err)
	}
	sub[0] = byte(len(raw))
	copy(sub[1:], raw)
	return sub, nil
}

// LedgerAccount is an owner and subaccount pair on the external ledger
type LedgerAccount struct {
	Owner      Principal  `json:"owner"`
	Subaccount Subaccount `json:"-"`
}

// String returns the textual account encoding. Default subaccounts render as
// the bare owner; others as owner-checksum.hex with leading zeros trimmed.
func (a LedgerAccount) String() string {
	if a.Subaccount.IsDefault() {
		return a.Owner.String()
	}
	return fmt.Sprintf("%s-%s.%s", a.Owner, a.checksum(), strings.TrimLeft(a.Subaccount.Hex(), "0"))
}

// Equal compares two accounts
func (a LedgerAccount) Equal(other LedgerAccount) bool {
	return a.Owner == other.Owner && a.Subaccount == other.Subaccount
}

func (a LedgerAccount) checksum() string {
	raw, _ := a.Owner.Bytes()
	sum := make([]byte, 4)
	binary.BigEndian.PutUint32(sum, crc32.ChecksumIEEE(append(append([]byte{}, raw...), a.Subaccount[:]...)))
	return strings.ToLower(checksumEncoding.EncodeToString(sum))
}

// ParseLedgerAccount parses the textual account encoding
func ParseLedgerAccount(text string) (LedgerAccount, error) {
	dot := strings.LastIndex(text, ".")
	if dot < 0 {
		owner, err := ParsePrincipal(text)
		if err != nil {
			return LedgerAccount{}, err
		}
		return LedgerAccount{Owner: owner}, nil
	}

	head, subHex := text[:dot], text[dot+1:]
	if subHex == "" || strings.HasPrefix(subHex, "0") {
		return LedgerAccount{}, fmt.Errorf("invalid account %q: non-canonical subaccount", text)
	}
	dash := strings.LastIndex(head, "-")
	if dash < 0 {
		return LedgerAccount{}, fmt.Errorf("invalid account %q: missing checksum", text)
	}

	owner, err := ParsePrincipal(head[:dash])
	if err != nil {
		return LedgerAccount{}, err
	}
	sub, err := ParseSubaccount(subHex)
	if err != nil {
		return LedgerAccount{}, err
	}

	account := LedgerAccount{Owner: owner, Subaccount: sub}
	if account.Subaccount.IsDefault() {
		return LedgerAccount{}, fmt.Errorf("invalid account %q: default subaccount must be omitted", text)
	}
	if account.checksum() != head[dash+1:] {
		return LedgerAccount{}, fmt.Errorf("invalid account %q: checksum mismatch", text)
	}
	return account, nil
}
