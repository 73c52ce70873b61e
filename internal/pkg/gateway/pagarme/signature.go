package pagarme

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "X-Hub-Signature"

// VerifyWebhookSignature checks a "sha1=<hex>" or "sha256=<hex>" signature
// against the raw payload.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	algo, hexSig, found := strings.Cut(sig, "=")
	if !found {
		algo, hexSig = "sha1", sig
	}
	decodedSig, err := hex.DecodeString(strings.ToLower(hexSig))
	if err != nil {
		return false
	}

	switch strings.ToLower(algo) {
	case "sha1":
		return verifyHMAC(payload, decodedSig, []byte(secret), sha1.New)
	case "sha256":
		return verifyHMAC(payload, decodedSig, []byte(secret), sha256.New)
	default:
		return false
	}
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
