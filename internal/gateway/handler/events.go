package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type eventsWSInbound struct {
	Type   string `json:"type"`
	ScanID string `json:"scanId,omitempty"`
}

type eventsWSOutbound struct {
	Type       string `json:"type"`
	ScanID     string `json:"scanId,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	FileCount  int    `json:"fileCount,omitempty"`
	IssueCount int    `json:"issueCount,omitempty"`
	Code       string `json:"code,omitempty"`
}

// HandleEventsWS streams panel events to an IDE client. The client may
// send {"type":"ping"} keepalives and {"type":"stop","scanId":...} to
// cancel a running scan without a separate HTTP call.
func (h *Handler) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		log.Printf("events ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	writeCh := make(chan eventsWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(eventsWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	subCh, unsubscribe := h.svc.Panels().Active().Subscribe()
	defer unsubscribe()

	pushEventsWS(writeCh, eventsWSOutbound{Type: "subscribed"})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-subCh:
				if !ok {
					return
				}
				pushEventsWS(writeCh, eventsWSOutbound{
					Type:       evt.Type,
					ScanID:     evt.ScanID,
					Status:     evt.Status,
					Message:    evt.Message,
					FileCount:  evt.FileCount,
					IssueCount: evt.IssueCount,
				})
			}
		}
	}()

	for {
		var in eventsWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushEventsWS(writeCh, eventsWSOutbound{Type: "pong"})
		case "stop":
			id := strings.TrimSpace(in.ScanID)
			if id == "" {
				pushEventsWS(writeCh, eventsWSOutbound{
					Type:    "error",
					Code:    "invalid_argument",
					Message: "scanId is required",
				})
				continue
			}
			if err := h.svc.Stop(ctx, id); err != nil {
				pushEventsWS(writeCh, eventsWSOutbound{
					Type:    "error",
					ScanID:  id,
					Code:    "stop_failed",
					Message: err.Error(),
				})
				continue
			}
			pushEventsWS(writeCh, eventsWSOutbound{Type: "stop_ack", ScanID: id})
		default:
			pushEventsWS(writeCh, eventsWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + in.Type,
			})
		}
	}
}

// pushEventsWS enqueues without blocking; on a full buffer the oldest
// pending message is dropped.
func pushEventsWS(writeCh chan eventsWSOutbound, out eventsWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
