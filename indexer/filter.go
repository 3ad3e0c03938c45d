package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Parameter keys understood by the lookup. network/chain and asset/token are
// aliases of each other.
const (
	KeyNetwork  = "network"
	KeyChain    = "chain"
	KeySender   = "sender"
	KeyReceiver = "receiver"
	KeyAsset    = "asset"
	KeyToken    = "token"

	// KeyFlowRateGT is the Stream_filter field carrying the active-flow predicate.
	KeyFlowRateGT = "currentFlowRate_gt"
)

// NetworkOf returns the network named by params, preferring "network" over "chain".
func NetworkOf(params map[string]any) (Network, bool) {
	for _, key := range []string{KeyNetwork, KeyChain} {
		if s, ok := params[key].(string); ok && strings.TrimSpace(s) != "" {
			return Network(strings.TrimSpace(s)), true
		}
	}
	return "", false
}

// ErrInvalidFlowRate is returned for a currentFlowRate_gt that is not a
// non-negative base-10 integer.
var ErrInvalidFlowRate = errors.New("currentFlowRate_gt must be a non-negative integer")

// BuildFilter turns stream parameters into a Stream_filter value.
//
// Every field except the network selector is copied. "asset" is sent as the
// subgraph field "token" unless "token" is already present. A caller-supplied
// flow-rate threshold is sent exactly or rejected; it is never rounded or
// replaced, so the filter checks precisely what the token will claim.
func BuildFilter(params map[string]any) (map[string]any, error) {
	threshold, err := FlowRateThreshold(params[KeyFlowRateGT])
	if err != nil {
		return nil, err
	}

	where := make(map[string]any, len(params)+1)
	for k, v := range params {
		switch k {
		case KeyNetwork, KeyChain, KeyFlowRateGT:
			continue
		case KeyAsset:
			if _, hasToken := params[KeyToken]; hasToken {
				continue
			}
			where[KeyToken] = v
		default:
			where[k] = v
		}
	}
	where[KeyFlowRateGT] = threshold
	return where, nil
}

// FlowRateThreshold returns the decimal BigInt string for a currentFlowRate_gt
// value. A missing value means "0". Every Go integer kind is accepted, as are
// integral floats, json.Number and decimal strings; fractions, exponents and
// negative values fail with ErrInvalidFlowRate.
func FlowRateThreshold(v any) (string, error) {
	var n *big.Int
	switch t := v.(type) {
	case nil:
		return "0", nil
	case string:
		n, _ = new(big.Int).SetString(t, 10)
	case json.Number:
		n, _ = new(big.Int).SetString(t.String(), 10)
	case int:
		n = big.NewInt(int64(t))
	case int8:
		n = big.NewInt(int64(t))
	case int16:
		n = big.NewInt(int64(t))
	case int32:
		n = big.NewInt(int64(t))
	case int64:
		n = big.NewInt(t)
	case uint:
		n = new(big.Int).SetUint64(uint64(t))
	case uint8:
		n = new(big.Int).SetUint64(uint64(t))
	case uint16:
		n = new(big.Int).SetUint64(uint64(t))
	case uint32:
		n = new(big.Int).SetUint64(uint64(t))
	case uint64:
		n = new(big.Int).SetUint64(t)
	case float32:
		n = integralFloat(float64(t))
	case float64:
		n = integralFloat(t)
	}
	if n == nil {
		return "", fmt.Errorf("%w: got %v", ErrInvalidFlowRate, v)
	}
	if n.Sign() < 0 {
		return "", fmt.Errorf("%w: got %s", ErrInvalidFlowRate, n)
	}
	return n.String(), nil
}

func integralFloat(f float64) *big.Int {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil
	}
	n, _ := big.NewFloat(f).Int(nil)
	return n
}
