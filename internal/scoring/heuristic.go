package scoring

import (
	"math/big"

	"github.com/trufnetwork/credit-attestation/internal/chain"
)

// Heuristic scoring constants, used when the oracle is unavailable.
const (
	HeuristicBase       = 400
	HeuristicPerSui     = 10
	HeuristicBalanceCap = 200
	HeuristicPerObject  = 5
	HeuristicObjectCap  = 100
	HeuristicMaxScore   = 800
)

// Heuristic scores an account from its on-chain footprint:
// 400 + min(whole SUI * 10, 200) + min(objects * 5, 100), capped at 800.
// Missing or malformed data counts as zero.
func Heuristic(data OnChainData) int64 {
	score := int64(HeuristicBase)

	if data.Balance != nil {
		if mist, ok := new(big.Int).SetString(*data.Balance, 10); ok && mist.Sign() > 0 {
			sui := new(big.Int).Quo(mist, big.NewInt(chain.MistPerSui))
			bonus := int64(HeuristicBalanceCap)
			if sui.IsInt64() && sui.Int64()*HeuristicPerSui < HeuristicBalanceCap {
				bonus = sui.Int64() * HeuristicPerSui
			}
			score += bonus
		}
	}

	if data.ObjectCount != nil && *data.ObjectCount > 0 {
		score += min(int64(*data.ObjectCount)*HeuristicPerObject, HeuristicObjectCap)
	}

	return min(score, HeuristicMaxScore)
}
