package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/learnflow/pystudio/internal/activity"
	"github.com/learnflow/pystudio/internal/observability"
	"github.com/learnflow/pystudio/internal/studio"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type chatWSInbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type chatWSOutbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Source  string `json:"source,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleChatWS handles GET /ws/chat. Each connection holds its own conversation,
// starting from the greeting, for as long as the socket stays open.
func (h *Handlers) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := observability.LoggerFromContext(ctx)

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		log.Warn("chat ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// A dead writer must also stop the reader and any blocked push.
		defer func() {
			cancel()
			_ = conn.Close()
		}()
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	state := studio.NewChatState(h.cfg.UserID)
	pushChatWS(ctx, writeCh, chatWSOutbound{Type: "greeting", Content: state.Transcript.Messages()[0].Content})

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushChatWS(ctx, writeCh, chatWSOutbound{Type: "pong"})
		case "message":
			var out studio.Outcome
			state, out = studio.SendMessage(ctx, h.chatter, state, in.Content)
			if out.Source == "" {
				pushChatWS(ctx, writeCh, chatWSOutbound{Type: "error", Message: "content is required"})
				continue
			}
			h.record(ctx, activity.KindChat, in.Content, out)
			pushChatWS(ctx, writeCh, chatWSOutbound{
				Type:    "reply",
				Content: out.Text,
				Source:  string(out.Source),
				Topic:   string(out.Topic),
			})
		case "":
			pushChatWS(ctx, writeCh, chatWSOutbound{Type: "error", Message: "type is required"})
		default:
			pushChatWS(ctx, writeCh, chatWSOutbound{Type: "error", Message: "unsupported type: " + in.Type})
		}
	}
}

// pushChatWS queues an outbound frame, waiting for the writer to catch up.
// It reports false when the connection closed first; the frame is then dropped and logged.
func pushChatWS(ctx context.Context, ch chan<- chatWSOutbound, out chatWSOutbound) bool {
	select {
	case ch <- out:
		return true
	case <-ctx.Done():
		observability.LoggerFromContext(ctx).Warn("chat ws frame dropped",
			"type", out.Type, "error", ctx.Err())
		return false
	}
}
