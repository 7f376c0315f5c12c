package http

import (
	"encoding/json"

	"triarb/internal/core/pool"
	"triarb/internal/core/store"
	"triarb/internal/core/strategy"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// DiagnosticsHandler serves read-only views into the running strategy
// loop: liveness, the current pool universe, and recently surfaced
// opportunities. It never exposes anything that would let a caller drive
// execution — this repository stops at detection.
type DiagnosticsHandler struct {
	logger   *zap.Logger
	pools    []pool.Pool
	reserves *store.ReserveStore
	recent   *strategy.RecentSink
}

// NewDiagnosticsHandler returns a handler over the given (read-only) views
// of the strategy loop's state.
func NewDiagnosticsHandler(logger *zap.Logger, pools []pool.Pool, reserves *store.ReserveStore, recent *strategy.RecentSink) *DiagnosticsHandler {
	return &DiagnosticsHandler{logger: logger, pools: pools, reserves: reserves, recent: recent}
}

// Handler returns a fasthttp.RequestHandler routing on path: /healthz,
// /pools, and /opportunities.
func (h *DiagnosticsHandler) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/healthz":
			h.healthz(ctx)
		case "/pools":
			h.pool_(ctx)
		case "/opportunities":
			h.opportunities(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
}

func (h *DiagnosticsHandler) healthz(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]interface{}{
		"status":          "ok",
		"tracked_pools":   len(h.pools),
		"loaded_reserves": h.reserves.Len(),
	})
}

type poolView struct {
	Address string `json:"address"`
	Token0  string `json:"token0"`
	Token1  string `json:"token1"`
	Fee     uint32 `json:"fee_numerator"`
}

func (h *DiagnosticsHandler) pool_(ctx *fasthttp.RequestCtx) {
	views := make([]poolView, 0, len(h.pools))
	for _, p := range h.pools {
		views = append(views, poolView{
			Address: p.Address.Hex(),
			Token0:  p.Token0.Hex(),
			Token1:  p.Token1.Hex(),
			Fee:     p.FeeNumerator,
		})
	}
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(views)
}

type opportunityView struct {
	Block       uint64 `json:"block"`
	PathIndex   int    `json:"path_index"`
	AmountIn    string `json:"amount_in"`
	GrossProfit string `json:"gross_profit"`
	GasCost     string `json:"gas_cost"`
	NetProfit   string `json:"net_profit"`
}

func (h *DiagnosticsHandler) opportunities(ctx *fasthttp.RequestCtx) {
	recent := h.recent.Recent()
	views := make([]opportunityView, 0, len(recent))
	for _, o := range recent {
		views = append(views, opportunityView{
			Block:       o.BlockNumber,
			PathIndex:   o.PathIndex,
			AmountIn:    o.AmountIn.String(),
			GrossProfit: o.GrossProfit.String(),
			GasCost:     o.GasCost.String(),
			NetProfit:   o.NetProfit.String(),
		})
	}
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(views)
}
