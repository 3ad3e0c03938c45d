package indexer

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultRegistryResolvesKnownNetworks(t *testing.T) {
	r := DefaultRegistry()
	for _, n := range []Network{"mainnet", "sepolia", "polygon", "goerli", "mumbai", "matic"} {
		endpoint, err := r.Endpoint(n)
		if err != nil {
			t.Fatalf("expected %s to resolve: %v", n, err)
		}
		if !strings.HasPrefix(endpoint, "https://") {
			t.Fatalf("expected https endpoint for %s, got %q", n, endpoint)
		}
	}
}

func TestRegistryRejectsUnknownNetwork(t *testing.T) {
	_, err := DefaultRegistry().Endpoint("unknown-chain")
	if !errors.Is(err, ErrUnsupportedNetwork) {
		t.Fatalf("expected ErrUnsupportedNetwork, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown-chain") {
		t.Fatalf("expected error to name the network, got %q", err.Error())
	}
}

func TestRegistryHasNoSilentFallback(t *testing.T) {
	if _, err := DefaultRegistry().Endpoint(""); !errors.Is(err, ErrUnsupportedNetwork) {
		t.Fatalf("expected empty network to be rejected, got %v", err)
	}
	if _, err := DefaultRegistry().Endpoint("near"); !errors.Is(err, ErrUnsupportedNetwork) {
		t.Fatalf("expected near to be rejected, got %v", err)
	}
}

func TestNewRegistryCopiesInput(t *testing.T) {
	in := map[Network]string{"local": "http://127.0.0.1:8000/subgraphs/name/sf"}
	r, err := NewRegistry(in)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	in["local"] = "http://evil.example"
	in["other"] = "http://other.example"

	endpoint, err := r.Endpoint("local")
	if err != nil || endpoint != "http://127.0.0.1:8000/subgraphs/name/sf" {
		t.Fatalf("registry changed after construction: %q %v", endpoint, err)
	}
	if _, err := r.Endpoint("other"); err == nil {
		t.Fatal("expected mutation of input map to not register new network")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		in   map[Network]string
	}{
		{name: "empty", in: map[Network]string{}},
		{name: "blank network", in: map[Network]string{"  ": "https://x.example"}},
		{name: "relative url", in: map[Network]string{"a": "/graphql"}},
		{name: "bad scheme", in: map[Network]string{"a": "ftp://x.example"}},
		{name: "duplicate after trim", in: map[Network]string{"a": "https://x.example", " a ": "https://y.example"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.in); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestExtendLeavesBaseUntouched(t *testing.T) {
	base := DefaultRegistry()
	ext, err := base.Extend(map[Network]string{"mainnet": "http://localhost:9/graphql", "devnet": "http://localhost:9/dev"})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if got, _ := ext.Endpoint("mainnet"); got != "http://localhost:9/graphql" {
		t.Fatalf("expected override, got %q", got)
	}
	if got, _ := base.Endpoint("mainnet"); got == "http://localhost:9/graphql" {
		t.Fatal("base registry was modified")
	}
	if _, err := base.Endpoint("devnet"); err == nil {
		t.Fatal("base registry gained a network")
	}
}

func TestNetworksSorted(t *testing.T) {
	ns := DefaultRegistry().Networks()
	for i := 1; i < len(ns); i++ {
		if ns[i-1] >= ns[i] {
			t.Fatalf("networks not sorted: %v", ns)
		}
	}
}
