package superjwt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MrEthical07/superjwt/indexer"
	"github.com/MrEthical07/superjwt/jwt"
)

// requiredKeys lists each required field with its accepted aliases.
var requiredKeys = [][]string{
	{indexer.KeyNetwork, indexer.KeyChain},
	{indexer.KeySender},
	{indexer.KeyReceiver},
	{indexer.KeyAsset, indexer.KeyToken},
}

func validateParams(params StreamParams) error {
	var missing []string
	for _, aliases := range requiredKeys {
		found := false
		for _, key := range aliases {
			v, ok := params[key]
			if !ok || v == nil {
				continue
			}
			s, isString := v.(string)
			if !isString {
				return fmt.Errorf("%w: %s must be a string", ErrInvalidParameters, key)
			}
			if strings.TrimSpace(s) != "" {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, aliases[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingParameters, strings.Join(missing, ", "))
	}

	for k, v := range params {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidParameters)
		}
		if jwt.IsReservedClaim(k) {
			return fmt.Errorf("%w: %s is a reserved claim", ErrInvalidParameters, k)
		}
		if !isScalar(v) {
			return fmt.Errorf("%w: %s must be a scalar value", ErrInvalidParameters, k)
		}
	}
	if _, err := indexer.FlowRateThreshold(params[indexer.KeyFlowRateGT]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func cloneParams(params StreamParams) StreamParams {
	out := make(StreamParams, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
