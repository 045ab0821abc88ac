package papihttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/portfolio"
	"papertrader/internal/riskgate"
	"papertrader/internal/signal"
	"papertrader/internal/sizing"
	"papertrader/internal/store"
)

// Router 暴露模拟盘的查询与下单接口。
type Router struct {
	Portfolio *portfolio.Portfolio
	Engine    *signal.Engine
	Sizer     *sizing.Calculator
	Store     *store.Store
}

// NewRouter 构造 API router。
func NewRouter(pf *portfolio.Portfolio, engine *signal.Engine, sizer *sizing.Calculator, st *store.Store) *Router {
	return &Router{Portfolio: pf, Engine: engine, Sizer: sizer, Store: st}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/portfolio", r.handlePortfolio)
	group.GET("/positions", r.handlePositions)
	group.GET("/audit", r.handleAudit)
	group.GET("/trades", r.handleTrades)
	group.POST("/orders", r.handleSubmitOrder)
	group.POST("/positions/:symbol/close", r.handleClosePosition)
	group.POST("/analyze/:symbol", r.handleAnalyze)
	group.POST("/size", r.handleSize)
}

func (r *Router) handlePortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, r.Portfolio.Snapshot())
}

func (r *Router) handlePositions(c *gin.Context) {
	snap := r.Portfolio.Snapshot()
	c.JSON(http.StatusOK, gin.H{"positions": snap.Positions, "count": len(snap.Positions)})
}

func (r *Router) handleAudit(c *gin.Context) {
	if r.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store not enabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := r.Store.RecentAudits(limit)
	if err != nil {
		logger.Errorf("[api] audit list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": records})
}

func (r *Router) handleTrades(c *gin.Context) {
	if r.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade journal not enabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := r.Store.RecentTrades(limit)
	if err != nil {
		logger.Errorf("[api] trades list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": records})
}

type orderRequestPayload struct {
	riskgate.OrderRequest
	ATR float64 `json:"atr,omitempty"`
}

func (r *Router) handleSubmitOrder(c *gin.Context) {
	var req orderRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Errorf("[api] order bind failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var md *riskgate.MarketData
	if req.ATR > 0 {
		md = &riskgate.MarketData{ATR: req.ATR}
	}
	res, err := r.Portfolio.SubmitOrder(req.OrderRequest, md)
	if err != nil {
		logger.Warnf("[api] order rejected as malformed ip=%s symbol=%s err=%v", c.ClientIP(), req.Symbol, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] order ip=%s symbol=%s side=%s qty=%.4f allowed=%v adjusted=%.4f",
		c.ClientIP(), strings.ToUpper(strings.TrimSpace(req.Symbol)), req.Side, req.Quantity, res.Allowed, res.AdjustedQuantity)
	c.JSON(http.StatusOK, res)
}

type closeRequestPayload struct {
	Price  float64 `json:"price"`
	Reason string  `json:"reason,omitempty"`
}

func (r *Router) handleClosePosition(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	var req closeRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual close"
	}
	trade, err := r.Portfolio.ClosePosition(symbol, req.Price, reason)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] close ip=%s symbol=%s qty=%.4f pnl=%.2f", c.ClientIP(), symbol, trade.Quantity, trade.RealizedPnL)
	c.JSON(http.StatusOK, trade)
}

type analyzeRequestPayload struct {
	Candles []market.Candle `json:"candles"`
}

func (r *Router) handleAnalyze(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	var req analyzeRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sig := r.Engine.Analyze(symbol, req.Candles)
	logger.Debugf("[api] analyze ip=%s symbol=%s candles=%d type=%s conf=%.1f",
		c.ClientIP(), symbol, len(req.Candles), sig.Type, sig.Confidence)
	c.JSON(http.StatusOK, sig)
}

func (r *Router) handleSize(c *gin.Context) {
	var input sizing.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.Sizer.Calculate(input))
}
