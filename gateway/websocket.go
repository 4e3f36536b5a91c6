// WebSocket handler for real-time chat

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gliderlab/planact/agent"
)

// WebSocket message types
const (
	MsgTypeChat      = "chat"
	MsgTypeGreeting  = "greeting"
	MsgTypeThought   = "thought"
	MsgTypeStart     = "start"
	MsgTypeChunk     = "chunk"
	MsgTypeDone      = "done"
	MsgTypeToolStart = "tool_start"
	MsgTypeToolEnd   = "tool_end"
	MsgTypeNotice    = "notice"
	MsgTypeError     = "error"
	MsgTypePing      = "ping"
	MsgTypePong      = "pong"
)

// chatQueueSize bounds the chat messages waiting behind a running turn
const chatQueueSize = 16

// WSMessage represents a WebSocket message. Chat frames may carry
// attachments here or inside content.
type WSMessage struct {
	Type        string             `json:"type"`
	Content     json.RawMessage    `json:"content,omitempty"`
	Attachments []agent.Attachment `json:"attachments,omitempty"`
}

// WSChatRequest is the content of a chat message. Clients may also send
// the content as a bare string.
type WSChatRequest struct {
	Message     string             `json:"message"`
	Attachments []agent.Attachment `json:"attachments,omitempty"`
}

// WSChatResponse carries text frames
type WSChatResponse struct {
	Content string `json:"content,omitempty"`
	Finish  bool   `json:"finish,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WSToolEvent carries tool_start and tool_end frames
type WSToolEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleWebSocket handles WebSocket upgrade requests
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !g.validateToken(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if g.wsConnCount.Add(1) > g.cfg.MaxConns {
		g.wsConnCount.Add(-1)
		http.Error(w, "too many WebSocket connections", http.StatusServiceUnavailable)
		return
	}

	ip := getClientIP(r)
	g.mu.Lock()
	g.wsIPConns[ip]++
	if g.wsIPConns[ip] > g.cfg.MaxConnsPerIP {
		g.mu.Unlock()
		g.releaseConn(ip)
		http.Error(w, "too many connections from this IP", http.StatusServiceUnavailable)
		return
	}
	g.mu.Unlock()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		log.Printf("[WS] Accept error: %v", err)
		g.releaseConn(ip)
		return
	}
	conn.SetReadLimit(g.cfg.ReadLimit)
	defer g.releaseConn(ip)

	g.handleWSConnection(r.Context(), conn)
}

func (g *Gateway) releaseConn(ip string) {
	g.wsConnCount.Add(-1)
	g.mu.Lock()
	g.wsIPConns[ip]--
	if g.wsIPConns[ip] <= 0 {
		delete(g.wsIPConns, ip)
	}
	g.mu.Unlock()
}

// wsConn serializes writes; coder/websocket allows one writer at a time.
type wsConn struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	ctx          context.Context
}

func (c *wsConn) send(msgType string, payload any) error {
	msg := WSMessage{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Content = raw
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
	defer cancel()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

func (c *wsConn) sendError(errMsg string) {
	if err := c.send(MsgTypeError, WSChatResponse{Error: errMsg, Finish: true}); err != nil {
		log.Printf("[WS] Error send: %v", err)
	}
}

// handleWSConnection owns one session. Chat turns run one at a time in
// arrival order on a worker beside the read loop. Leaving cancels any turn
// still running and waits for the worker before closing the socket.
func (g *Gateway) handleWSConnection(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	var worker sync.WaitGroup
	queue := make(chan WSChatRequest, chatQueueSize)
	defer conn.Close(websocket.StatusNormalClosure, "")
	defer worker.Wait()
	defer close(queue)
	defer cancel()

	wc := &wsConn{conn: conn, writeTimeout: g.cfg.WriteTimeout, ctx: ctx}
	sess := agent.NewSession(&wsChannel{conn: wc})
	g.sessions.Add(1)
	log.Printf("[WS] session=%s connected", sess.ID)

	if err := wc.send(MsgTypeGreeting, WSChatResponse{Content: g.agent.Greeting()}); err != nil {
		log.Printf("[WS] session=%s greeting failed: %v", sess.ID, err)
		return
	}

	go g.pingLoop(ctx, wc)

	worker.Add(1)
	go func() {
		defer worker.Done()
		for req := range queue {
			if ctx.Err() != nil {
				continue
			}
			g.handleWSChat(ctx, wc, sess, req)
		}
	}()

	for {
		_, msgBytes, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Printf("[WS] session=%s read error: %v", sess.ID, err)
			}
			log.Printf("[WS] session=%s disconnected", sess.ID)
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			wc.sendError("invalid message format")
			continue
		}

		switch msg.Type {
		case MsgTypeChat:
			req, err := chatRequest(msg)
			if err != nil {
				wc.sendError("invalid request: " + err.Error())
				continue
			}
			select {
			case queue <- req:
			default:
				wc.sendError("too many pending messages")
			}
		case MsgTypePing:
			if err := wc.send(MsgTypePong, nil); err != nil {
				log.Printf("[WS] Pong write failed, closing connection: %v", err)
				return
			}
		case MsgTypePong:
		default:
			log.Printf("[WS] Unknown message type: %s", msg.Type)
		}
	}
}

func (g *Gateway) pingLoop(ctx context.Context, wc *wsConn) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.send(MsgTypePing, nil); err != nil {
				log.Printf("[WS] Ping failed, closing connection: %v", err)
				wc.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}

func (g *Gateway) handleWSChat(ctx context.Context, wc *wsConn, sess *agent.Session, req WSChatRequest) {
	out, err := g.agent.Submit(ctx, sess, req.Message, req.Attachments)
	switch {
	case errors.Is(err, agent.ErrEmptyQuery):
		// The notice frame already told the client.
	case ctx.Err() != nil:
		log.Printf("[WS] session=%s turn cancelled", sess.ID)
	case err != nil:
		log.Printf("[WS] session=%s turn failed: %v", sess.ID, err)
		wc.sendError(err.Error())
	default:
		log.Printf("[WS] session=%s turn finished: state=%s steps=%d", sess.ID, out.State, out.Steps)
	}
}

// chatRequest decodes a chat frame. Top-level attachments follow any given
// inside content.
func chatRequest(msg WSMessage) (WSChatRequest, error) {
	req, err := parseChatRequest(msg.Content)
	if err != nil {
		return req, err
	}
	req.Attachments = append(req.Attachments, msg.Attachments...)
	return req, nil
}

// parseChatRequest accepts an object, a stringified object or a bare string
func parseChatRequest(content json.RawMessage) (WSChatRequest, error) {
	var req WSChatRequest
	if err := json.Unmarshal(content, &req); err == nil {
		return req, nil
	}
	var s string
	if err := json.Unmarshal(content, &s); err != nil {
		return req, err
	}
	if strings.HasPrefix(strings.TrimSpace(s), "{") {
		if err := json.Unmarshal([]byte(s), &req); err == nil {
			return req, nil
		}
	}
	return WSChatRequest{Message: s}, nil
}

// wsChannel forwards agent events as frames
type wsChannel struct {
	conn *wsConn
}

func (c *wsChannel) write(msgType string, payload any) {
	if err := c.conn.send(msgType, payload); err != nil && c.conn.ctx.Err() == nil {
		log.Printf("[WS] Write error (%s): %v", msgType, err)
	}
}

func (c *wsChannel) ThoughtToken(token string) {
	c.write(MsgTypeThought, WSChatResponse{Content: token})
}

func (c *wsChannel) StartMessage() { c.write(MsgTypeStart, nil) }

func (c *wsChannel) Token(token string) {
	c.write(MsgTypeChunk, WSChatResponse{Content: token})
}

func (c *wsChannel) EndMessage(text string) {
	c.write(MsgTypeDone, WSChatResponse{Content: text, Finish: true})
}

func (c *wsChannel) ToolStart(rec agent.ToolCallRecord) {
	c.write(MsgTypeToolStart, WSToolEvent{ID: rec.ID, Name: rec.Name, Arguments: rec.Arguments})
}

func (c *wsChannel) ToolEnd(rec agent.ToolCallRecord, output string, err error) {
	ev := WSToolEvent{ID: rec.ID, Name: rec.Name, Arguments: rec.Arguments, Output: output}
	if err != nil {
		ev.Error = err.Error()
	}
	c.write(MsgTypeToolEnd, ev)
}

func (c *wsChannel) Notice(text string) {
	c.write(MsgTypeNotice, WSChatResponse{Content: text})
}

var _ agent.Channel = (*wsChannel)(nil)

// getClientIP extracts client IP from HTTP request (handles proxies)
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
