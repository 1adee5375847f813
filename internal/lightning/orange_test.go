package lightning

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrange writes an executable script that prints the given stdout,
// standing in for the wallet daemon's CLI.
func fakeOrange(t *testing.T, stdout string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	path := filepath.Join(t.TempDir(), "orange")
	script := "#!/bin/sh\ncat <<'EOF'\n" + stdout + "\nEOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestOrangeIssuer_Issue(t *testing.T) {
	bin := fakeOrange(t, `{"invoice":"lnbc1fakeinvoice","amount_sats":1000,"payment_hash":"`+testHashHex+`"}`)
	issuer := NewOrangeIssuer(bin, "/tmp/orange.toml")

	inv, err := issuer.Issue(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "lnbc1fakeinvoice", inv.Bolt11)
	assert.Equal(t, testHashHex, inv.PaymentHash)
	assert.Equal(t, int64(1000), inv.AmountSats)
}

func TestOrangeIssuer_DecodesHashFromInvoice(t *testing.T) {
	// Older daemon output without payment_hash: fall back to decoding
	// the bolt11 itself.
	invoice := encodeTestInvoice(t, "lnbc", paymentHashField(t, testHashHex))
	bin := fakeOrange(t, `{"invoice":"`+invoice+`","amount_sats":1000}`)
	issuer := NewOrangeIssuer(bin, "/tmp/orange.toml")

	inv, err := issuer.Issue(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, testHashHex, inv.PaymentHash)
}

func TestOrangeIssuer_UndecodableInvoice(t *testing.T) {
	bin := fakeOrange(t, `{"invoice":"garbage","amount_sats":1000}`)
	issuer := NewOrangeIssuer(bin, "/tmp/orange.toml")

	_, err := issuer.Issue(context.Background(), 1000)
	assert.Error(t, err)
}

func TestOrangeIssuer_DaemonMissing(t *testing.T) {
	issuer := NewOrangeIssuer("/nonexistent/orange", "/tmp/orange.toml")

	_, err := issuer.Issue(context.Background(), 1000)
	assert.ErrorIs(t, err, ErrIssuerUnavailable)
}

func TestOrangeIssuer_BadOutput(t *testing.T) {
	bin := fakeOrange(t, `not json`)
	issuer := NewOrangeIssuer(bin, "/tmp/orange.toml")

	_, err := issuer.Issue(context.Background(), 1000)
	assert.ErrorIs(t, err, ErrIssuerUnavailable)
}
