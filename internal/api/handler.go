package api

import (
	"context"
	"errors"
	"net/http"

	"cryptodesk/internal/aggregator"
	"cryptodesk/pkg/coin"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RatesProvider is satisfied by *aggregator.Aggregator.
type RatesProvider interface {
	GetRates(ctx context.Context) (coin.Snapshot, error)
}

// StreamServer is satisfied by *stream.Hub.
type StreamServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	rates  RatesProvider
	stream StreamServer
	logger *zap.Logger
}

func New(rates RatesProvider, stream StreamServer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{rates: rates, stream: stream, logger: logger.Named("api")}
}

// NewRouter builds the gin engine serving the price API.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(h.logger))
	h.Register(r)
	return r
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.health)
	r.GET("/api/crypto/prices", h.getPrices)
	if h.stream != nil {
		r.GET("/api/crypto/stream", h.streamPrices)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getPrices serves the live snapshot, a stale one marked "stale": true,
// or 503 with empty collections when no price was ever fetched.
func (h *Handler) getPrices(c *gin.Context) {
	snap, err := h.rates.GetRates(c.Request.Context())
	if err != nil {
		msg := "Service temporarily unavailable"
		if errors.Is(err, aggregator.ErrNoData) {
			msg = "Unable to fetch prices"
		} else {
			h.logger.Error("get rates failed", zap.Error(err))
		}
		c.JSON(http.StatusServiceUnavailable, coin.ErrorBody{
			Error:  msg,
			Rates:  map[string]float64{},
			Prices: []coin.PriceQuote{},
		})
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *Handler) streamPrices(c *gin.Context) {
	h.stream.ServeWS(c.Writer, c.Request)
}
