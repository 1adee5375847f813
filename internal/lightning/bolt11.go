package lightning

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Minimal BOLT11 reader: just enough bech32 to pull the payment_hash
// tagged field out of an invoice. Everything else in the invoice is
// opaque to this system.

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// tagPaymentHash is the 'p' tagged field type in a BOLT11 invoice.
const tagPaymentHash = 1

var errNoPaymentHash = errors.New("bolt11: no payment_hash tag")

// PaymentHash decodes a BOLT11 invoice and returns its payment hash as a
// lowercase hex string.
func PaymentHash(bolt11 string) (string, error) {
	_, data, err := bech32Decode(bolt11)
	if err != nil {
		return "", err
	}

	// Layout: 35-bit timestamp, tagged fields, 520-bit signature.
	if len(data) < 7+104 {
		return "", errors.New("bolt11: data section too short")
	}
	fields := data[7 : len(data)-104]

	for len(fields) >= 3 {
		tag := fields[0]
		dataLen := int(fields[1])<<5 | int(fields[2])
		fields = fields[3:]
		if dataLen > len(fields) {
			return "", errors.New("bolt11: truncated tagged field")
		}
		if tag == tagPaymentHash && dataLen == 52 {
			hash, err := groupsToBytes(fields[:dataLen], 32)
			if err != nil {
				return "", err
			}
			return hex.EncodeToString(hash), nil
		}
		fields = fields[dataLen:]
	}
	return "", errNoPaymentHash
}

// bech32Decode splits and verifies a bech32 string, returning the human
// readable part and the 5-bit data values with the checksum stripped.
func bech32Decode(s string) (string, []byte, error) {
	if strings.ToLower(s) != s {
		if strings.ToUpper(s) != s {
			return "", nil, errors.New("bech32: mixed case")
		}
		s = strings.ToLower(s)
	}
	sep := strings.LastIndex(s, "1")
	if sep < 1 || sep+7 > len(s) {
		return "", nil, errors.New("bech32: missing separator")
	}
	hrp := s[:sep]
	values := make([]byte, 0, len(s)-sep-1)
	for _, c := range s[sep+1:] {
		v := strings.IndexRune(bech32Charset, c)
		if v < 0 {
			return "", nil, fmt.Errorf("bech32: invalid character %q", c)
		}
		values = append(values, byte(v))
	}
	if !bech32VerifyChecksum(hrp, values) {
		return "", nil, errors.New("bech32: checksum mismatch")
	}
	return hrp, values[:len(values)-6], nil
}

func bech32Polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		b := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (b>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func bech32HRPExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func bech32VerifyChecksum(hrp string, values []byte) bool {
	return bech32Polymod(append(bech32HRPExpand(hrp), values...)) == 1
}

// groupsToBytes repacks 5-bit groups into bytes and returns the first
// want bytes, ignoring sub-byte padding at the tail.
func groupsToBytes(groups []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	var acc uint32
	var bits uint
	for _, g := range groups {
		acc = acc<<5 | uint32(g)
		bits += 5
		for bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>bits))
		}
	}
	if len(out) < want {
		return nil, fmt.Errorf("bolt11: field too short: %d bytes", len(out))
	}
	return out[:want], nil
}
