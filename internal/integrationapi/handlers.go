package integrationapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trufnetwork/credit-attestation/internal/chain"
	"github.com/trufnetwork/credit-attestation/internal/claim"
	"github.com/trufnetwork/credit-attestation/internal/httpapi"
	"github.com/trufnetwork/credit-attestation/internal/scoring"
	"github.com/trufnetwork/credit-attestation/internal/signerapi"
	"github.com/trufnetwork/credit-attestation/internal/tiers"
)

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Network   string `json:"network"`
	ChainID   string `json:"chainId"`
	PackageID string `json:"packageId"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChainTimeout)
	defer cancel()

	chainID, err := s.chain.ChainIdentifier(ctx)
	if err != nil {
		httpapi.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   ServiceName,
		Network:   s.cfg.Network,
		ChainID:   chainID,
		PackageID: s.cfg.Contracts.PackageID,
	})
}

type scoreRequest struct {
	Address string          `json:"address"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// decodeAddressRequest writes a 400 and returns false when the body is
// unreadable or carries no usable address.
func decodeAddressRequest(w http.ResponseWriter, r *http.Request) (scoreRequest, bool) {
	var req scoreRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return req, false
	}
	if req.Address == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "Address is required", "")
		return req, false
	}
	if err := claim.ValidateAddress(req.Address); err != nil {
		writeInvalidAddress(w, req.Address)
		return req, false
	}
	return req, true
}

func writeInvalidAddress(w http.ResponseWriter, address string) {
	httpapi.WriteJSON(w, http.StatusBadRequest, map[string]string{
		"error":    "Invalid Sui address format",
		"received": address,
	})
}

type scoreResponse struct {
	Success     bool                `json:"success"`
	Address     string              `json:"address"`
	CreditScore int64               `json:"creditScore"`
	Tier        uint8               `json:"tier"`
	OnChainData scoring.OnChainData `json:"onChainData"`
	Source      scoring.Source      `json:"source"`
}

func (s *server) handleScore(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAddressRequest(w, r)
	if !ok {
		return
	}

	res := s.scorer.Score(r.Context(), req.Address, req.Data)
	httpapi.WriteJSON(w, http.StatusOK, scoreResponse{
		Success:     true,
		Address:     req.Address,
		CreditScore: res.Score,
		Tier:        res.Tier,
		OnChainData: res.OnChain,
		Source:      res.Source,
	})
}

type contractInfo struct {
	PackageID string `json:"packageId"`
	ConfigID  string `json:"configId"`
	StateID   string `json:"stateId"`
}

type claimResponse struct {
	Success       bool                    `json:"success"`
	Value         signerapi.ResponseValue `json:"value"`
	Signature     string                  `json:"signature"`
	SignerAddress string                  `json:"signerAddress"`
	CreditScore   int64                   `json:"creditScore"`
	Tier          uint8                   `json:"tier"`
	ContractInfo  contractInfo            `json:"contractInfo"`
}

func (s *server) handleClaim(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAddressRequest(w, r)
	if !ok {
		return
	}

	res := s.scorer.ScoreForClaim(r.Context(), req.Address, req.Data)

	now := s.cfg.Now()
	signReq := claim.Request{
		To:       req.Address,
		Score:    claim.NumberOf(res.Score),
		TierID:   claim.NumberOf(int64(res.Tier)),
		Nonce:    claim.StringOf(strconv.FormatInt(now.UnixMilli(), 10)),
		Deadline: claim.NumberOf(now.Add(s.cfg.ClaimTTL).Unix()),
	}

	att, err := s.attester.Issue(r.Context(), signReq)
	if err != nil {
		s.logger.Error("claim signing failed", zap.String("address", req.Address), zap.Error(err))
		httpapi.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to process claim request",
			"message": err.Error(),
		})
		return
	}

	s.logger.Info("claim ready",
		zap.String("address", req.Address),
		zap.Int64("score", res.Score),
		zap.Uint8("tier", res.Tier),
		zap.String("source", string(res.Source)))

	httpapi.WriteJSON(w, http.StatusOK, claimResponse{
		Success:       true,
		Value:         signerapi.NewResponseValue(att.Value),
		Signature:     att.Signature,
		SignerAddress: att.SignerAddress,
		CreditScore:   res.Score,
		Tier:          res.Tier,
		ContractInfo: contractInfo{
			PackageID: s.cfg.Contracts.PackageID,
			ConfigID:  s.cfg.Contracts.ConfigID,
			StateID:   s.cfg.Contracts.StateID,
		},
	})
}

// Badge is the decoded CreditBadgeNFT struct.
type Badge struct {
	TokenID   string `mapstructure:"token_id" json:"tokenId"`
	TierID    uint8  `mapstructure:"tier_id" json:"tierId"`
	LastScore string `mapstructure:"last_score" json:"lastScore"`
	MintedAt  string `mapstructure:"minted_at" json:"mintedAt"`
	UpdatedAt string `mapstructure:"updated_at" json:"updatedAt"`
	Soulbound bool   `mapstructure:"soulbound" json:"soulbound"`
}

type nftResponse struct {
	HasNFT   bool           `json:"hasNFT"`
	ObjectID string         `json:"objectId,omitempty"`
	Content  map[string]any `json:"content,omitempty"`
	Display  *chain.Display `json:"display,omitempty"`
	Badge    *Badge         `json:"badge,omitempty"`
	Tier     *tiers.Tier    `json:"tier,omitempty"`
}

func (s *server) handleNFT(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := claim.ValidateAddress(address); err != nil {
		writeInvalidAddress(w, address)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChainTimeout)
	defer cancel()

	objects, err := s.chain.OwnedObjects(ctx, address, s.badgeType())
	if err != nil {
		s.logger.Warn("nft query failed", zap.String("address", address), zap.Error(err))
		httpapi.WriteError(w, http.StatusInternalServerError, "Failed to query NFT", err.Error())
		return
	}
	if len(objects) == 0 {
		httpapi.WriteJSON(w, http.StatusOK, nftResponse{HasNFT: false})
		return
	}

	nft := objects[0]
	resp := nftResponse{
		HasNFT:   true,
		ObjectID: nft.ObjectID,
		Content:  nft.Fields(),
		Display:  nft.Display,
	}

	var badge Badge
	if err := nft.DecodeFields(&badge); err != nil {
		s.logger.Debug("badge fields not decodable", zap.String("object", nft.ObjectID), zap.Error(errors.Cause(err)))
	} else {
		resp.Badge = &badge
		if tier, ok := s.tiers.Get(badge.TierID); ok {
			resp.Tier = &tier
		}
	}
	httpapi.WriteJSON(w, http.StatusOK, resp)
}

type configResponse struct {
	PackageID  string `json:"packageId"`
	ConfigID   string `json:"configId"`
	StateID    string `json:"stateId"`
	AdminCapID string `json:"adminCapId"`
	Network    string `json:"network"`
	RPCURL     string `json:"rpcUrl"`
}

func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	c := s.cfg.Contracts
	httpapi.WriteJSON(w, http.StatusOK, configResponse{
		PackageID:  c.PackageID,
		ConfigID:   c.ConfigID,
		StateID:    c.StateID,
		AdminCapID: c.AdminCapID,
		Network:    s.cfg.Network,
		RPCURL:     s.cfg.RPCURL,
	})
}

func (s *server) handleTiers(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"tiers": s.tiers.Tiers()})
}
