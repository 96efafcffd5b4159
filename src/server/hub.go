package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"pair-analytics/src/analysis"
	"pair-analytics/src/metrics"
	"pair-analytics/src/models"
)

type clientSubscription struct {
	client *Client
	key    string
}

type directMessage struct {
	client *Client
	msg    models.MPushMessage
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main hub loop. It alone touches s.clients.
func (s *AnalyticsServer) handleWebsockets() {
	for {
		select {
		case <-s.ctx.Done():
			for client, key := range s.clients {
				s.dropClient(client, key)
			}
			return

		case client := <-s.register:
			s.clients[client] = ""
			s.clientCount.Add(1)
			metrics.WSClients.Inc()

		case client := <-s.unregister:
			if key, ok := s.clients[client]; ok {
				s.dropClient(client, key)
			}

		case sub := <-s.subscribe:
			old, ok := s.clients[sub.client]
			if !ok {
				// Client left before its subscription landed.
				s.Refresher.Unsubscribe(sub.key)
				continue
			}
			if old != "" {
				s.Refresher.Unsubscribe(old)
			}
			s.clients[sub.client] = sub.key

		case d := <-s.direct:
			if key, ok := s.clients[d.client]; ok {
				select {
				case d.client.send <- d.msg:
				default:
					s.dropClient(d.client, key)
				}
			}

		case message := <-s.broadcast:
			for client, key := range s.clients {
				if message.Key != "" && message.Key != key {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Slow consumer, prune it so the hub never blocks.
					s.dropClient(client, key)
				}
			}
		}
	}
}

func (s *AnalyticsServer) dropClient(client *Client, key string) {
	delete(s.clients, client)
	close(client.send)
	if key != "" {
		s.Refresher.Unsubscribe(key)
	}
	s.clientCount.Add(-1)
	metrics.WSClients.Dec()
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a push message. Messages with a key go to that key's
// subscribers, others to every client. A full queue drops the message.
func (s *AnalyticsServer) Broadcast(message interface{}) {
	msg, ok := message.(models.MPushMessage)
	if !ok {
		msg = models.MPushMessage{Type: "UPDATE", Payload: message}
	}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s for %q", msg.Type, msg.Key)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *AnalyticsServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		send: make(chan interface{}, 256),
	}

	select {
	case s.register <- client:
	case <-s.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage processes a subscribe command. Bad commands get an
// ERROR reply; unparseable frames disconnect the client.
func (s *AnalyticsServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}
	if cmd.Command != "subscribe" {
		return
	}

	def := s.Config.Analytics
	req := analysis.PairRequest{
		SymbolX:          orDefault(cmd.SymbolX, def.DefaultSymbolX),
		SymbolY:          orDefault(cmd.SymbolY, def.DefaultSymbolY),
		Timeframe:        orDefault(cmd.Timeframe, def.DefaultTimeframe),
		ZWindow:          cmd.ZWindow,
		CorrWindow:       cmd.CorrWindow,
		WithStationarity: cmd.Stationarity,
	}

	key, err := s.Refresher.Subscribe(req, cmd.RefreshSeconds)
	if err != nil {
		s.sendTo(client, models.MPushMessage{Type: "ERROR", Error: errorBody(err)})
		return
	}

	select {
	case s.subscribe <- clientSubscription{client: client, key: key}:
	case <-s.ctx.Done():
		s.Refresher.Unsubscribe(key)
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// sendTo routes a reply to one client through the hub.
func (s *AnalyticsServer) sendTo(client *Client, msg models.MPushMessage) {
	select {
	case s.direct <- directMessage{client: client, msg: msg}:
	case <-s.ctx.Done():
	}
}
