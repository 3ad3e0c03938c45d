package indexer

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Network is the short tag that selects an indexer endpoint (for example "mainnet"
// or "polygon").
type Network string

// ErrUnsupportedNetwork is returned when a network has no registered endpoint.
var ErrUnsupportedNetwork = errors.New("super-jwt: unsupported network")

const superfluidEndpoints = "https://subgraph-endpoints.superfluid.dev/"

// defaultEndpoints is the fixed table behind DefaultRegistry. goerli and mumbai
// still point at the legacy hosted-service subgraphs.
var defaultEndpoints = map[Network]string{
	"mainnet":          superfluidEndpoints + "eth-mainnet/protocol-v1",
	"sepolia":          superfluidEndpoints + "eth-sepolia/protocol-v1",
	"polygon":          superfluidEndpoints + "polygon-mainnet/protocol-v1",
	"matic":            superfluidEndpoints + "polygon-mainnet/protocol-v1",
	"optimism":         superfluidEndpoints + "optimism-mainnet/protocol-v1",
	"optimism-sepolia": superfluidEndpoints + "optimism-sepolia/protocol-v1",
	"arbitrum":         superfluidEndpoints + "arbitrum-one/protocol-v1",
	"base":             superfluidEndpoints + "base-mainnet/protocol-v1",
	"base-sepolia":     superfluidEndpoints + "base-sepolia/protocol-v1",
	"avalanche":        superfluidEndpoints + "avalanche-c/protocol-v1",
	"avalanche-fuji":   superfluidEndpoints + "avalanche-fuji/protocol-v1",
	"gnosis":           superfluidEndpoints + "xdai-mainnet/protocol-v1",
	"bsc":              superfluidEndpoints + "bsc-mainnet/protocol-v1",
	"celo":             superfluidEndpoints + "celo-mainnet/protocol-v1",
	"scroll":           superfluidEndpoints + "scroll-mainnet/protocol-v1",
	"goerli":           "https://api.thegraph.com/subgraphs/name/superfluid-finance/protocol-v1-goerli",
	"mumbai":           "https://api.thegraph.com/subgraphs/name/superfluid-finance/protocol-v1-mumbai",
}

// Registry maps networks to indexer endpoint URLs.
//
// A Registry has no mutating methods; it is built once and shared read-only.
type Registry struct {
	endpoints map[Network]string
}

var defaultRegistry = mustRegistry(defaultEndpoints)

// DefaultRegistry returns the built-in Superfluid subgraph table.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry copies endpoints into a new Registry. Network names are trimmed and
// must be non-empty; endpoints must be absolute http(s) URLs.
func NewRegistry(endpoints map[Network]string) (*Registry, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("registry requires at least one endpoint")
	}
	out := make(map[Network]string, len(endpoints))
	for network, endpoint := range endpoints {
		name := Network(strings.TrimSpace(string(network)))
		if name == "" {
			return nil, errors.New("registry contains empty network name")
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("registry contains duplicate network %q", name)
		}
		endpoint = strings.TrimSpace(endpoint)
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid endpoint for network %q", name)
		}
		out[name] = endpoint
	}
	return &Registry{endpoints: out}, nil
}

// Extend returns a new Registry holding r's entries overlaid with overrides.
// r itself is left untouched.
func (r *Registry) Extend(overrides map[Network]string) (*Registry, error) {
	merged := make(map[Network]string, len(r.endpoints)+len(overrides))
	for k, v := range r.endpoints {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[Network(strings.TrimSpace(string(k)))] = v
	}
	return NewRegistry(merged)
}

// Endpoint resolves network to its endpoint URL.
func (r *Registry) Endpoint(network Network) (string, error) {
	if r != nil {
		if endpoint, ok := r.endpoints[network]; ok {
			return endpoint, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
}

// Networks lists the registered networks in lexical order.
func (r *Registry) Networks() []Network {
	if r == nil {
		return nil
	}
	out := make([]Network, 0, len(r.endpoints))
	for n := range r.endpoints {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func mustRegistry(endpoints map[Network]string) *Registry {
	r, err := NewRegistry(endpoints)
	if err != nil {
		panic(err)
	}
	return r
}
