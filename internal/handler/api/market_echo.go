package api

import (
	"net/http"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/internal/usecase"
	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

type MarketEchoHandler struct {
	log          *applogger.Logger
	market       *usecase.MarketUsecase
	metrics      domrepo.Metrics
	tickInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewMarketEchoHandler(log *applogger.Logger, market *usecase.MarketUsecase, metrics domrepo.Metrics, tickInterval time.Duration) *MarketEchoHandler {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &MarketEchoHandler{
		log:          log,
		market:       market,
		metrics:      metrics,
		tickInterval: tickInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *MarketEchoHandler) RegisterRoutes(g *echo.Group) {
	mg := g.Group("/market")
	mg.GET("/news", h.News)
	mg.GET("/data/:pair", h.Data)
	mg.GET("/stream", h.Stream)
}

func (h *MarketEchoHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.market.News(req.Limit))
}

func (h *MarketEchoHandler) Data(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	res, err := h.market.Data(c.Request().Context(), req.Pair, req.Timeframe)
	if err != nil {
		return respondError(c, h.log, "market data", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=30")
	return xhttp.SuccessResponse(c, res)
}

// Stream upgrades to a websocket and pushes one tick per pair every tick interval until
// the client goes away.
func (h *MarketEchoHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	pairs, err := h.market.StreamPairs(req.Pairs)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	h.metrics.StreamClients(1)
	defer h.metrics.StreamClients(-1)

	done := make(chan struct{})
	go h.readPump(conn, done)

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()
	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	ctx := c.Request().Context()
	if !h.push(conn, pairs) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-ticker.C:
			if !h.push(conn, pairs) {
				return nil
			}
		}
	}
}

func (h *MarketEchoHandler) push(conn *websocket.Conn, pairs []domrepo.PairInfo) bool {
	for _, p := range pairs {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(h.market.Tick(p)); err != nil {
			h.log.Debug("websocket write failed", applogger.Error(err))
			return false
		}
	}
	return true
}

// readPump drains client frames so control messages are handled, and closes done
// when the peer disconnects.
func (h *MarketEchoHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
