package superjwt

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/superjwt/indexer"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestSecurityInvariantVerifyNeverQueriesIndexer(t *testing.T) {
	idx := newFakeIndexer(t, "s1")
	a := buildTestAuthority(t, testConfig(idx.server.URL))

	res, err := a.Authorize(context.Background(), mainnetParams(), testSecret, SigningOptions{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := a.Verify(res.Token, testSecret); err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
	}
	if idx.calls.Load() != 1 {
		t.Fatalf("expected verification to stay offline, indexer saw %d queries", idx.calls.Load())
	}
}

func TestSecurityInvariantPartialIndexerAnswerIssuesNothing(t *testing.T) {
	idx := newFakeIndexerFunc(t, func(w http.ResponseWriter, _ graphqlRequest) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":   map[string]any{"streams": []map[string]string{{"id": "s1"}}},
			"errors": []map[string]string{{"message": "indexing_error"}},
		})
	})
	a := buildTestAuthority(t, testConfig(idx.server.URL))

	if _, err := a.Authorize(context.Background(), mainnetParams(), testSecret, SigningOptions{}); !errors.Is(err, ErrNoActiveStream) {
		t.Fatalf("expected ErrNoActiveStream when the indexer reports errors, got %v", err)
	}
}

func TestSecurityInvariantSplicedPayloadRejected(t *testing.T) {
	a, err := New().WithStreamFinder(&stubFinder{streams: []indexer.Stream{{ID: "s1"}}}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer a.Close()

	mine, err := a.Authorize(context.Background(), mainnetParams(), testSecret, SigningOptions{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	other := mainnetParams()
	other["sender"] = "0xWhale"
	theirs, err := a.Authorize(context.Background(), other, testSecret, SigningOptions{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}

	m := strings.Split(mine.Token, ".")
	o := strings.Split(theirs.Token, ".")
	spliced := m[0] + "." + o[1] + "." + m[2]
	if _, err := a.Verify(spliced, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected spliced payload to be rejected, got %v", err)
	}
}

func TestSecurityInvariantNoneAlgorithmRejected(t *testing.T) {
	a := buildTestAuthority(t, DefaultConfig())

	now := time.Now()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{
		"network": "mainnet", "sender": "a", "receiver": "b", "asset": "c",
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := a.Verify(token, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none to be rejected, got %v", err)
	}
}

func TestSecurityInvariantMissingExpiryRejected(t *testing.T) {
	a := buildTestAuthority(t, DefaultConfig())

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"network": "mainnet", "sender": "a", "receiver": "b", "asset": "c",
		"iat": time.Now().Unix(),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := a.Verify(token, testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token without exp to be rejected, got %v", err)
	}
}

func TestSecurityInvariantHMACWithPublicKeyRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.DefaultMethod = "ed25519"
	cfg.JWT.AllowedMethods = []string{"ed25519"}
	a := buildTestAuthority(t, cfg)

	priv := ed25519.NewKeyFromSeed([]byte("0123456789abcdef0123456789abcdef"))
	pub := priv.Public().(ed25519.PublicKey)

	now := time.Now()
	forged, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"network": "mainnet", "sender": "a", "receiver": "b", "asset": "c",
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte(pub))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := a.Verify(forged, pub); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected hmac token keyed with the public key to be rejected, got %v", err)
	}
}
