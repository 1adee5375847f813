package lightning

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

const orangeTimeout = 30 * time.Second

// OrangeIssuer shells out to the orange wallet daemon's CLI to create a
// receive invoice. The daemon prints a JSON document on stdout.
type OrangeIssuer struct {
	BinPath    string
	ConfigPath string
}

// NewOrangeIssuer returns an issuer bound to a wallet binary and config.
func NewOrangeIssuer(binPath, configPath string) *OrangeIssuer {
	return &OrangeIssuer{BinPath: binPath, ConfigPath: configPath}
}

// orangeReceipt mirrors the CLI's JSON output. Older daemon builds do not
// emit payment_hash, in which case it is extracted from the bolt11 itself.
type orangeReceipt struct {
	Invoice     string `json:"invoice"`
	Address     string `json:"address"`
	AmountSats  int64  `json:"amount_sats"`
	FullURI     string `json:"full_uri"`
	PaymentHash string `json:"payment_hash"`
}

func (o *OrangeIssuer) Issue(ctx context.Context, amountSats int64) (Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, orangeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.BinPath,
		"--config", o.ConfigPath,
		"receive",
		"--amount", strconv.FormatInt(amountSats, 10),
	)
	out, err := cmd.Output()
	if err != nil {
		return Invoice{}, fmt.Errorf("%w: orange receive: %v", ErrIssuerUnavailable, err)
	}

	var receipt orangeReceipt
	if err := json.Unmarshal(out, &receipt); err != nil {
		return Invoice{}, fmt.Errorf("%w: decode orange output: %v", ErrIssuerUnavailable, err)
	}
	if receipt.Invoice == "" {
		return Invoice{}, fmt.Errorf("%w: empty invoice in orange output", ErrIssuerUnavailable)
	}

	hash := receipt.PaymentHash
	if hash == "" {
		hash, err = PaymentHash(receipt.Invoice)
		if err != nil {
			return Invoice{}, fmt.Errorf("extract payment hash: %w", err)
		}
	}

	return Invoice{
		Bolt11:      receipt.Invoice,
		PaymentHash: hash,
		AmountSats:  amountSats,
	}, nil
}
