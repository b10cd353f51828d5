package sharding

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func custodianKeyPair(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	privDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return privPEM, pubPEM
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	privPEM, pubPEM := custodianKeyPair(t)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "hex shard", payload: []byte("01deadbeef0203")},
		{name: "binary data", payload: []byte{0x00, 0x01, 0xFF, 0xFE, 0x7F}},
		{name: "kilobyte payload", payload: make([]byte, 1024)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := EncryptForCustodian(pubPEM, tc.payload)
			require.NoError(t, err)
			require.Greater(t, len(sealed), len(tc.payload))

			plaintext, err := DecryptShardDelivery(privPEM, sealed)
			require.NoError(t, err)
			assert.Equal(t, tc.payload, plaintext)
		})
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	_, pubPEM := custodianKeyPair(t)
	otherPrivPEM, _ := custodianKeyPair(t)

	sealed, err := EncryptForCustodian(pubPEM, []byte("shard material"))
	require.NoError(t, err)

	_, err = DecryptShardDelivery(otherPrivPEM, sealed)
	assert.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	privPEM, pubPEM := custodianKeyPair(t)

	sealed, err := EncryptForCustodian(pubPEM, []byte("shard material"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = DecryptShardDelivery(privPEM, sealed)
	assert.Error(t, err)
}

func TestEncryptDecryptKeyFormatErrors(t *testing.T) {
	privPEM, _ := custodianKeyPair(t)

	_, err := EncryptForCustodian([]byte("not a valid PEM"), []byte("payload"))
	assert.Error(t, err)

	_, err = DecryptShardDelivery([]byte("not a valid PEM"), []byte("payload"))
	assert.Error(t, err)

	_, err = DecryptShardDelivery(privPEM, []byte{0x01})
	assert.Error(t, err)

	_, err = DecryptShardDelivery(privPEM, make([]byte, 100))
	assert.Error(t, err)
}

func TestDispatcherDeliversEncryptedShards(t *testing.T) {
	privPEM, pubPEM := custodianKeyPair(t)

	var received [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, DispatchPath, r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = append(received, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	endpoint := strings.TrimPrefix(srv.URL, "http://")
	custodians := []Custodian{
		{Endpoint: endpoint, PublicKeyPEM: pubPEM},
		{Endpoint: endpoint, PublicKeyPEM: pubPEM},
	}
	shards := []string{"aa01", "bb02"}

	d := NewDispatcher(testLogger())
	require.NoError(t, d.Dispatch(context.Background(), custodians, shards))

	// Custodians received ciphertext they can open with their own key.
	require.Len(t, received, 2)
	for i, sealed := range received {
		assert.NotEqual(t, []byte(shards[i]), sealed)

		plaintext, err := DecryptShardDelivery(privPEM, sealed)
		require.NoError(t, err)
		assert.Equal(t, shards[i], string(plaintext))
	}
}

func TestDispatcherRequiresEnoughCustodians(t *testing.T) {
	_, pubPEM := custodianKeyPair(t)

	d := NewDispatcher(testLogger())
	custodians := []Custodian{{Endpoint: "127.0.0.1:1", PublicKeyPEM: pubPEM}}

	err := d.Dispatch(context.Background(), custodians, []string{"aa", "bb"})
	assert.Error(t, err)

	err = d.Dispatch(context.Background(), custodians, nil)
	assert.Error(t, err)
}

func TestDispatcherPropagatesDeliveryFailures(t *testing.T) {
	_, pubPEM := custodianKeyPair(t)
	d := NewDispatcher(testLogger())

	t.Run("custodian rejects delivery", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		custodians := []Custodian{{Endpoint: strings.TrimPrefix(srv.URL, "http://"), PublicKeyPEM: pubPEM}}
		err := d.Dispatch(context.Background(), custodians, []string{"aa01"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("custodian unreachable", func(t *testing.T) {
		custodians := []Custodian{{Endpoint: "127.0.0.1:1", PublicKeyPEM: pubPEM}}
		err := d.Dispatch(context.Background(), custodians, []string{"aa01"})
		assert.Error(t, err)
	})

	t.Run("invalid custodian key", func(t *testing.T) {
		custodians := []Custodian{{Endpoint: "127.0.0.1:1", PublicKeyPEM: []byte("garbage")}}
		err := d.Dispatch(context.Background(), custodians, []string{"aa01"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encrypting shard")
	})
}
