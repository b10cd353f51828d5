package sharding

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DispatchPath is the HTTP path custodian endpoints accept shard
// deliveries on.
const DispatchPath = "/api/v1/custody/shard"

const (
	dispatchTimeout = 30 * time.Second
	gcmNonceSize    = 12
)

// Custodian identifies a shard recipient: where to deliver and which key
// to encrypt against.
type Custodian struct {
	// Endpoint is the host:port accepting deliveries on DispatchPath.
	Endpoint string

	// PublicKeyPEM is the custodian's ECDSA public key in PKIX PEM form.
	PublicKeyPEM []byte
}

// Dispatcher delivers shards to custodians over HTTP. Every shard is
// encrypted against its custodian's public key before it leaves the
// process, so the wire never carries plaintext key material.
type Dispatcher struct {
	client *http.Client
	log    *slog.Logger
}

// NewDispatcher returns a Dispatcher with a bounded-timeout HTTP client.
func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: dispatchTimeout},
		log:    log,
	}
}

// Dispatch sends one shard to each custodian, pairing them by position.
// No custodian receives more than one shard: holding several would let a
// single party creep toward the reconstruction threshold. Delivery is
// fail-fast so a partial dispatch can be retried as a whole.
func (d *Dispatcher) Dispatch(ctx context.Context, custodians []Custodian, shards []string) error {
	if len(shards) == 0 {
		return errors.New("no shards to dispatch")
	}
	if len(custodians) < len(shards) {
		return fmt.Errorf("have %d custodians for %d shards", len(custodians), len(shards))
	}

	for i, shard := range shards {
		custodian := custodians[i]

		plaintext := []byte(shard)
		sealed, err := EncryptForCustodian(custodian.PublicKeyPEM, plaintext)
		Wipe(plaintext)
		if err != nil {
			return fmt.Errorf("encrypting shard %d for %s: %w", i, custodian.Endpoint, err)
		}

		if err := d.deliver(ctx, custodian.Endpoint, sealed); err != nil {
			return fmt.Errorf("delivering shard %d to %s: %w", i, custodian.Endpoint, err)
		}

		d.log.Info("Dispatched shard to custodian",
			slog.Int("shard_index", i),
			slog.String("endpoint", custodian.Endpoint))
	}

	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, endpoint string, sealed []byte) error {
	url := "http://" + endpoint + DispatchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(sealed))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("custodian returned status %d", resp.StatusCode)
	}
	return nil
}

// EncryptForCustodian encrypts payload against an ECDSA public key using
// ECIES: ephemeral ECDH key agreement, SHA-256 key derivation, and
// AES-GCM authenticated encryption. A fresh ephemeral key per call gives
// forward secrecy. Output layout: two-byte ephemeral key length, the
// ephemeral public key, the GCM nonce, then the ciphertext.
func EncryptForCustodian(publicKeyPEM []byte, payload []byte) ([]byte, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode public key PEM")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}

	ephemeralKey, err := ecdsa.GenerateKey(publicKey.Curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	x, _ := publicKey.Curve.ScalarMult(publicKey.X, publicKey.Y, ephemeralKey.D.Bytes())
	sharedSecret := sha256.Sum256(x.Bytes())

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesBlock, err := aes.NewCipher(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, payload, nil)
	ephemeralPub := elliptic.Marshal(ephemeralKey.Curve, ephemeralKey.X, ephemeralKey.Y)

	result := make([]byte, 0, 2+len(ephemeralPub)+len(nonce)+len(ciphertext))
	result = binary.BigEndian.AppendUint16(result, uint16(len(ephemeralPub)))
	result = append(result, ephemeralPub...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)

	return result, nil
}

// DecryptShardDelivery is the custodian-side inverse of
// EncryptForCustodian. It parses the wire layout, repeats the ECDH
// agreement with the custodian's private key, and opens the AES-GCM
// ciphertext.
func DecryptShardDelivery(privateKeyPEM []byte, sealed []byte) ([]byte, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode private key PEM")
	}

	privateKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	if len(sealed) < 2 {
		return nil, errors.New("sealed data too short")
	}

	ephemeralLen := int(binary.BigEndian.Uint16(sealed[0:2]))
	if len(sealed) < 2+ephemeralLen+gcmNonceSize {
		return nil, errors.New("sealed data has invalid format")
	}

	x, y := elliptic.Unmarshal(privateKey.Curve, sealed[2:2+ephemeralLen])
	if x == nil {
		return nil, errors.New("failed to unmarshal ephemeral public key")
	}

	xShared, _ := privateKey.Curve.ScalarMult(x, y, privateKey.D.Bytes())
	sharedSecret := sha256.Sum256(xShared.Bytes())

	nonceStart := 2 + ephemeralLen
	nonce := sealed[nonceStart : nonceStart+gcmNonceSize]
	ciphertext := sealed[nonceStart+gcmNonceSize:]

	aesBlock, err := aes.NewCipher(sharedSecret[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}
