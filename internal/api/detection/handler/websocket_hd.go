package detectionHandler

import (
	"errors"
	"time"
	"trashiq/internal/api/detection"
	"trashiq/pkg/handlerUtil"
	"trashiq/pkg/log"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleDetectWebSocket answers every frame with the body POST /detect would
// return. Binary frames are encoded images, text frames are base64 payloads.
func (h *DetectionHandler) handleDetectWebSocket(c *websocket.Conn) {
	h.log.Info("Detection WebSocket client connected")
	defer h.log.Info("Detection WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		log.Debug(log.Fields{"payload_size": len(data)}, "Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Detection WebSocket error: %v", err)
			} else {
				h.log.Info("Detection WebSocket connection closed")
			}
			break
		}

		var reply interface{}
		switch messageType {
		case websocket.BinaryMessage:
			reply = h.frameReply(func(ctx context.Context) (*detection.DetectResult, error) {
				return h.detectionService.DetectImage(ctx, message)
			})
		case websocket.TextMessage:
			reply = h.frameReply(func(ctx context.Context) (*detection.DetectResult, error) {
				return h.detectionService.Detect(ctx, string(message))
			})
		default:
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(reply); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}

func (h *DetectionHandler) frameReply(run func(ctx context.Context) (*detection.DetectResult, error)) interface{} {
	if !h.detectionService.Status().Loaded {
		_, body := handlerUtil.Resolve(detection.ErrModelNotLoaded)
		return body
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result, err := run(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return handlerUtil.ErrorResponse{Error: "Request Timeout"}
	}
	if err != nil {
		h.log.Errorf("Error processing detection frame: %v", err)
		_, body := handlerUtil.Resolve(err)
		return body
	}

	return h.detectResponse(result)
}
