package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trufnetwork/credit-attestation/internal/chain"
	"github.com/trufnetwork/credit-attestation/internal/metrics"
	"github.com/trufnetwork/credit-attestation/internal/tiers"
	"github.com/trufnetwork/credit-attestation/internal/upstream"
)

const testAddress = "0x1111111111111111111111111111111111111111111111111111111111111111"

type fakeChain struct {
	balance string
	objects int
	err     error
}

func (f fakeChain) Balance(context.Context, string) (chain.Balance, error) {
	return chain.Balance{TotalBalance: f.balance}, f.err
}

func (f fakeChain) ObjectCount(context.Context, string) (int, error) {
	return f.objects, f.err
}

func oracleServer(t *testing.T, handler http.HandlerFunc) *Oracle {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOracle(srv.URL, srv.Client(), zaptest.NewLogger(t), metrics.NewNoOpMetrics())
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func newService(t *testing.T, c ChainReader, o Predictor) *Service {
	return NewService(c, o, tiers.Default(), WithLogger(zaptest.NewLogger(t)))
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name string
		data OnChainData
		want int64
	}{
		{"no data", OnChainData{}, 400},
		{"12.5 SUI and 3 objects", OnChainData{Balance: strPtr("12500000000"), ObjectCount: intPtr(3)}, 400 + 120 + 15},
		{"balance bonus capped", OnChainData{Balance: strPtr("900000000000000"), ObjectCount: intPtr(0)}, 600},
		{"object bonus capped", OnChainData{Balance: strPtr("0"), ObjectCount: intPtr(500)}, 500},
		{"both capped", OnChainData{Balance: strPtr("99999999999999999999999"), ObjectCount: intPtr(50)}, 700},
		{"malformed balance", OnChainData{Balance: strPtr("lots"), ObjectCount: intPtr(2)}, 410},
		{"below one SUI", OnChainData{Balance: strPtr("999999999")}, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Heuristic(tt.data)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, int64(HeuristicMaxScore))
		})
	}
}

func TestScore_UsesOracle(t *testing.T) {
	var got PredictRequest
	o := oracleServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(`{"score": 712.9}`)(w, r)
	})
	s := newService(t, fakeChain{balance: "3000000000", objects: 4}, o)

	res := s.Score(context.Background(), testAddress, json.RawMessage(`{"income":1}`))
	assert.Equal(t, int64(712), res.Score)
	assert.Equal(t, uint8(4), res.Tier)
	assert.Equal(t, SourceOracle, res.Source)

	assert.Equal(t, testAddress, got.Address)
	require.NotNil(t, got.OnChainData.Balance)
	assert.Equal(t, "3000000000", *got.OnChainData.Balance)
	assert.Equal(t, 4, *got.OnChainData.ObjectCount)
	assert.JSONEq(t, `{"income":1}`, string(got.AdditionalData))
}

func TestScore_OracleZeroMeansDefault(t *testing.T) {
	for _, body := range []string{`{"score":0}`, `{}`, `{"score":null}`} {
		o := oracleServer(t, respond(body))
		res := newService(t, fakeChain{balance: "0"}, o).Score(context.Background(), testAddress, nil)
		assert.Equal(t, int64(DefaultScore), res.Score, body)
		assert.Equal(t, uint8(3), res.Tier)
		assert.Equal(t, SourceOracle, res.Source)
	}
}

func TestScore_StringScoreAccepted(t *testing.T) {
	o := oracleServer(t, respond(`{"score":"455"}`))
	res := newService(t, fakeChain{balance: "0"}, o).Score(context.Background(), testAddress, nil)
	assert.Equal(t, int64(455), res.Score)
	assert.Equal(t, uint8(1), res.Tier)
}

func TestScore_FallsBackToHeuristic(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		},
		"malformed":      respond(`not json`),
		"negative score": respond(`{"score": -5}`),
	}
	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			o := oracleServer(t, handler)
			res := newService(t, fakeChain{balance: "12500000000", objects: 3}, o).
				Score(context.Background(), testAddress, nil)
			assert.Equal(t, int64(535), res.Score)
			assert.Equal(t, uint8(2), res.Tier)
			assert.Equal(t, SourceHeuristic, res.Source)
		})
	}
}

func TestScore_OracleTimeout(t *testing.T) {
	release := make(chan struct{})
	o := oracleServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	s := NewService(fakeChain{balance: "0", objects: 0}, o, tiers.Default(),
		WithTimeouts(50*time.Millisecond, 50*time.Millisecond))

	start := time.Now()
	res := s.Score(context.Background(), testAddress, nil)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, SourceHeuristic, res.Source)
	assert.Equal(t, int64(400), res.Score)
}

func TestScore_ChainFailureContinuesWithEmptyData(t *testing.T) {
	var got PredictRequest
	o := oracleServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(`{"score": 650}`)(w, r)
	})
	res := newService(t, fakeChain{err: errors.New("rpc down")}, o).Score(context.Background(), testAddress, nil)
	assert.Equal(t, int64(650), res.Score)
	assert.True(t, res.OnChain.Empty())
	assert.True(t, got.OnChainData.Empty())
}

func TestScoreForClaim_ChainFailureUsesDefault(t *testing.T) {
	var calls atomic.Int32
	o := oracleServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(`{"score": 790}`)(w, r)
	})
	res := newService(t, fakeChain{err: errors.New("rpc down")}, o).ScoreForClaim(context.Background(), testAddress, nil)
	assert.Equal(t, int64(DefaultScore), res.Score)
	assert.Equal(t, uint8(3), res.Tier)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Zero(t, calls.Load(), "oracle is not consulted without chain data")
}

func TestOracle_CircuitOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	o := oracleServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	for i := 0; i < 10; i++ {
		_, err := o.Predict(context.Background(), PredictRequest{Address: testAddress}, time.Second)
		require.ErrorIs(t, err, upstream.ErrUpstreamUnavailable)
	}
	assert.Equal(t, int32(DefaultCircuitBreakerMaxRequests), calls.Load())
}

func TestScoreForClaim_StalledNodeUsesDefault(t *testing.T) {
	release := make(chan struct{})
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(node.Close)
	t.Cleanup(func() { close(release) })

	client, err := chain.Dial(context.Background(), node.URL, chain.WithRetryBudget(0))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	var oracleCalls atomic.Int32
	o := oracleServer(t, func(w http.ResponseWriter, r *http.Request) {
		oracleCalls.Add(1)
		respond(`{"score":750}`)(w, r)
	})
	s := NewService(client, o, tiers.Default(),
		WithLogger(zaptest.NewLogger(t)),
		WithChainTimeout(100*time.Millisecond))

	start := time.Now()
	res := s.ScoreForClaim(context.Background(), testAddress, nil)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, int64(DefaultScore), res.Score)
	assert.Zero(t, oracleCalls.Load())

	start = time.Now()
	res = s.Score(context.Background(), testAddress, nil)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, SourceOracle, res.Source)
	assert.Nil(t, res.OnChain.Balance)
}
