package livehttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"planc/internal/config"
	"planc/internal/engine"
	"planc/internal/execution"
	"planc/internal/gateway/exchange"
	"planc/internal/logger"

	"github.com/gin-gonic/gin"
)

// Router 暴露实盘控制与查询接口。
type Router struct {
	ctl    Controller
	events EventSource
}

func NewRouter(ctl Controller, events EventSource) *Router {
	return &Router{ctl: ctl, events: events}
}

// Register 将 /api/live 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/state", r.handleState)
	group.GET("/positions", r.handlePositions)
	group.GET("/pnl", r.handlePnL)
	group.GET("/events", r.handleEvents)
	group.POST("/connect", r.handleConnect)
	group.POST("/symbol", r.handleSymbol)
	group.POST("/settings", r.handleSettings)
	group.POST("/auto", r.handleAuto)
	group.POST("/close/:symbol", r.handleClose)
	group.POST("/close-all", r.handleCloseAll)
}

func (r *Router) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, r.ctl.State())
}

func (r *Router) handlePositions(c *gin.Context) {
	positions, err := r.ctl.Positions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if positions == nil {
		positions = []exchange.Position{}
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (r *Router) handlePnL(c *gin.Context) {
	limit := queryInt(c, "limit", 50, 500)
	trades, err := r.ctl.RecentTrades(limit)
	if err != nil {
		logger.Warnf("[api] trade log read failed: %v", err)
	}
	c.JSON(http.StatusOK, pnlResponse{Summary: r.ctl.PnL(), Trades: trades})
}

// handleEvents 默认返回最近事件；stream=1 时以 SSE 持续推送。
func (r *Router) handleEvents(c *gin.Context) {
	if r.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event log disabled"})
		return
	}
	limit := queryInt(c, "limit", 200, 1000)
	if !parseBool(c.Query("stream")) {
		c.JSON(http.StatusOK, gin.H{"events": r.events.Recent(limit)})
		return
	}
	ch, cancel := r.events.Subscribe(128)
	defer cancel()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	for _, evt := range r.events.Recent(limit) {
		c.SSEvent("event", evt)
	}
	c.Writer.Flush()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("event", evt)
			c.Writer.Flush()
		}
	}
}

func (r *Router) handleConnect(c *gin.Context) {
	if err := r.ctl.Connect(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r.ctl.State())
}

func (r *Router) handleSymbol(c *gin.Context) {
	var req symbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := r.ctl.SetSymbol(c.Request.Context(), req.Symbol); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r.ctl.State().Settings)
}

func (r *Router) handleSettings(c *gin.Context) {
	var patch engine.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := r.ctl.UpdateSettings(patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (r *Router) handleAuto(c *gin.Context) {
	var req autoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.ctl.SetAuto(*req.Enabled)
	c.JSON(http.StatusOK, r.ctl.State().Settings)
}

func (r *Router) handleClose(c *gin.Context) {
	sym := strings.TrimSpace(c.Param("symbol"))
	if err := r.ctl.ClosePosition(c.Request.Context(), sym, "manual"); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, actionResponse{OK: true, At: time.Now()})
}

func (r *Router) handleCloseAll(c *gin.Context) {
	if err := r.ctl.CloseAll(c.Request.Context(), "manual_all"); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, actionResponse{OK: true, At: time.Now()})
}

// writeError 把领域错误映射为 HTTP 状态码。
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, exchange.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, execution.ErrNotActionable):
		status = http.StatusUnprocessableEntity
	default:
		var apiErr *exchange.APIError
		if errors.As(err, &apiErr) {
			status = http.StatusBadGateway
		}
	}
	logger.Warnf("[api] %s %s failed status=%d err=%v", c.Request.Method, c.Request.URL.Path, status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, key string, def, ceiling int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || v <= 0 {
		return def
	}
	if v > ceiling {
		return ceiling
	}
	return v
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
