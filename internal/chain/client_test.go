package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trufnetwork/credit-attestation/internal/upstream"
)

const testOwner = "0x1111111111111111111111111111111111111111111111111111111111111111"

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers JSON-RPC calls with handler's result, or a JSON-RPC error
// when handler returns one.
func fakeNode(t *testing.T, handler func(req rpcRequest) (any, *rpcError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rerr := handler(req)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func dial(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	c, err := Dial(context.Background(), url, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestBalance(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *rpcError) {
		assert.Equal(t, "suix_getBalance", req.Method)
		require.Len(t, req.Params, 1)
		assert.JSONEq(t, `"`+testOwner+`"`, string(req.Params[0]))
		return Balance{CoinType: "0x2::sui::SUI", CoinObjectCount: 3, TotalBalance: "12500000000"}, nil
	})

	b, err := dial(t, srv.URL).Balance(context.Background(), testOwner)
	require.NoError(t, err)

	total, err := b.Total()
	require.NoError(t, err)
	assert.Equal(t, "12500000000", total.String())
}

func TestOwnedObjects_WithStructType(t *testing.T) {
	structType := "0xabc::credit_score_badge::CreditBadgeNFT"
	srv := fakeNode(t, func(req rpcRequest) (any, *rpcError) {
		assert.Equal(t, "suix_getOwnedObjects", req.Method)
		var q objectQuery
		require.NoError(t, json.Unmarshal(req.Params[1], &q))
		require.NotNil(t, q.Filter)
		assert.Equal(t, structType, q.Filter.StructType)
		assert.True(t, q.Options.ShowContent)
		assert.True(t, q.Options.ShowDisplay)

		return map[string]any{
			"data": []any{
				map[string]any{"data": map[string]any{
					"objectId": "0xbadge",
					"version":  "7",
					"digest":   "d1",
					"content": map[string]any{
						"dataType": "moveObject",
						"fields":   map[string]any{"score": "710", "tier_id": 4, "owner": testOwner},
					},
					"display": map[string]any{"data": map[string]any{"name": "AAA badge"}},
				}},
			},
			"hasNextPage": false,
		}, nil
	})

	objects, err := dial(t, srv.URL).OwnedObjects(context.Background(), testOwner, structType)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "0xbadge", objects[0].ObjectID)
	assert.Equal(t, "AAA badge", objects[0].Display.Data["name"])

	var badge struct {
		Score  uint64 `mapstructure:"score"`
		TierID uint8  `mapstructure:"tier_id"`
	}
	require.NoError(t, objects[0].DecodeFields(&badge))
	assert.Equal(t, uint64(710), badge.Score)
	assert.Equal(t, uint8(4), badge.TierID)
}

func TestObjectCount(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *rpcError) {
		var q objectQuery
		require.NoError(t, json.Unmarshal(req.Params[1], &q))
		assert.Nil(t, q.Filter)
		return map[string]any{"data": []any{
			map[string]any{"data": map[string]any{"objectId": "0x1"}},
			map[string]any{"data": map[string]any{"objectId": "0x2"}},
			map[string]any{"error": map[string]any{"code": "deleted"}},
		}}, nil
	})

	n, err := dial(t, srv.URL).ObjectCount(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestChainIdentifier(t *testing.T) {
	srv := fakeNode(t, func(req rpcRequest) (any, *rpcError) {
		assert.Equal(t, "sui_getChainIdentifier", req.Method)
		return "4c78adac", nil
	})

	id, err := dial(t, srv.URL).ChainIdentifier(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4c78adac", id)
}

func TestCall_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "4c78adac"})
	}))
	t.Cleanup(srv.Close)

	id, err := dial(t, srv.URL).ChainIdentifier(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4c78adac", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_DoesNotRetryPermanentFailures(t *testing.T) {
	var calls atomic.Int32
	srv := fakeNode(t, func(req rpcRequest) (any, *rpcError) {
		calls.Add(1)
		return nil, &rpcError{Code: -32602, Message: "Invalid params: address is malformed"}
	})

	_, err := dial(t, srv.URL).Balance(context.Background(), "0x12")
	require.Error(t, err)
	assert.True(t, upstream.IsNonRetryableError(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_StopsAtContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := dial(t, srv.URL, WithRetryBudget(time.Minute)).ChainIdentifier(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCall_RequestTimeoutBoundsStalledNode(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := dial(t, srv.URL, WithRetryBudget(0), WithRequestTimeout(100*time.Millisecond)).
		Balance(context.Background(), testOwner)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestBalance_Total(t *testing.T) {
	_, err := Balance{TotalBalance: "12abc"}.Total()
	require.Error(t, err)

	zero, err := Balance{}.Total()
	require.NoError(t, err)
	assert.Zero(t, zero.Sign())
}
