package entities

import (
	"testing"

	"github.com/aviate-labs/agent-go/principal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalFromBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []byte
		want Principal
	}{
		{
			name: "management canister",
			raw:  []byte{},
			want: "aaaaa-aa",
		},
		{
			name: "anonymous",
			raw:  []byte{0x04},
			want: AnonymousPrincipal,
		},
		{
			name: "canister id",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x01, 0x01},
			want: "ryjl3-tyaaa-aaaaa-aaaba-cai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PrincipalFromBytes(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			raw, err := got.Bytes()
			require.NoError(t, err)
			assert.Equal(t, tt.raw, raw)
		})
	}
}

func TestPrincipal_MatchesAgentEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, principal.AnonymousID.String(), AnonymousPrincipal.String())

	raw, err := AnonymousPrincipal.Bytes()
	require.NoError(t, err)
	assert.Equal(t, principal.AnonymousID.Raw, raw)
}

func TestPrincipalFromBytes_TooLong(t *testing.T) {
	t.Parallel()

	_, err := PrincipalFromBytes(make([]byte, MaxPrincipalLength+1))
	assert.Error(t, err)
}

func TestParsePrincipal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "valid", text: "ryjl3-tyaaa-aaaaa-aaaba-cai"},
		{name: "anonymous", text: "2vxsx-fae"},
		{name: "empty", text: "", wantErr: true},
		{name: "uppercase", text: "RYJL3-TYAAA-AAAAA-AAABA-CAI", wantErr: true},
		{name: "missing dashes", text: "ryjl3tyaaaaaaaaaaabacai", wantErr: true},
		{name: "corrupted checksum", text: "ryjl3-tyaaa-aaaaa-aaaba-caa", wantErr: true},
		{name: "not base32", text: "ryjl1-tyaaa-aaaaa-aaaba-cai", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePrincipal(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Principal(tt.text), got)
		})
	}
}

func TestDepositSubaccount(t *testing.T) {
	t.Parallel()

	sub, err := DepositSubaccount(AnonymousPrincipal)
	require.NoError(t, err)

	var want Subaccount
	want[0] = 1
	want[1] = 0x04
	assert.Equal(t, want, sub)

	other, err := DepositSubaccount("ryjl3-tyaaa-aaaaa-aaaba-cai")
	require.NoError(t, err)
	assert.NotEqual(t, sub, other)
	assert.Equal(t, byte(10), other[0])

	_, err = DepositSubaccount("not-a-principal")
	assert.Error(t, err)
}

func TestLedgerAccount_TextRoundTrip(t *testing.T) {
	t.Parallel()

	owner := Principal("ryjl3-tyaaa-aaaaa-aaaba-cai")

	t.Run("default subaccount renders as owner", func(t *testing.T) {
		t.Parallel()

		account := LedgerAccount{Owner: owner}
		assert.Equal(t, owner.String(), account.String())

		parsed, err := ParseLedgerAccount(account.String())
		require.NoError(t, err)
		assert.True(t, parsed.Equal(account))
	})

	t.Run("derived subaccount", func(t *testing.T) {
		t.Parallel()

		sub, err := DepositSubaccount(AnonymousPrincipal)
		require.NoError(t, err)
		account := LedgerAccount{Owner: owner, Subaccount: sub}

		text := account.String()
		assert.Contains(t, text, ".104")

		parsed, err := ParseLedgerAccount(text)
		require.NoError(t, err)
		assert.True(t, parsed.Equal(account))
	})

	t.Run("bad checksum rejected", func(t *testing.T) {
		t.Parallel()

		sub, err := DepositSubaccount(AnonymousPrincipal)
		require.NoError(t, err)
		account := LedgerAccount{Owner: owner, Subaccount: sub}

		_, err = ParseLedgerAccount(owner.String() + "-aaaaaaa." + sub.Hex()[1:])
		assert.Error(t, err)
		_, err = ParseLedgerAccount(account.String() + "0")
		assert.Error(t, err)
	})
}

func TestParseSubaccount(t *testing.T) {
	t.Parallel()

	sub, err := ParseSubaccount("1")
	require.NoError(t, err)
	assert.Equal(t, byte(1), sub[SubaccountLength-1])
	assert.False(t, sub.IsDefault())

	zero, err := ParseSubaccount("")
	require.NoError(t, err)
	assert.True(t, zero.IsDefault())

	_, err = ParseSubaccount("zz")
	assert.Error(t, err)
}
