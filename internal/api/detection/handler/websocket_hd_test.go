package detectionHandler

import (
	"encoding/base64"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"trashiq/internal/entity"
	"trashiq/pkg/detector"
)

func dialDetectWS(t *testing.T, app *fiber.App) *websocket.Conn {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/detect/ws", nil)
	if err != nil {
		t.Fatalf("Failed to dial detection socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, messageType int, payload []byte) map[string]interface{} {
	t.Helper()

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(messageType, payload); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out map[string]interface{}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	return out
}

func TestDetectWebSocket_Frames(t *testing.T) {
	app := setupApp(&fakeDetector{
		ready: true,
		detections: []entity.RawDetection{
			{Label: "can", Confidence: 0.9, Box: entity.BoundingBox{X1: 1, Y1: 1, X2: 5, Y2: 5}},
		},
	})
	conn := dialDetectWS(t, app)
	image := testPNG(t)

	out := exchange(t, conn, websocket.BinaryMessage, image)
	if out["success"] != true || out["total_detections"] != float64(1) {
		t.Errorf("Binary frame: unexpected reply %v", out)
	}
	if best, ok := out["detection"].(map[string]interface{}); !ok || best["class_name"] != "can" {
		t.Errorf("Binary frame: unexpected detection %v", out["detection"])
	}

	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
	out = exchange(t, conn, websocket.TextMessage, []byte(encoded))
	if out["success"] != true || out["total_detections"] != float64(1) {
		t.Errorf("Text frame: unexpected reply %v", out)
	}

	out = exchange(t, conn, websocket.BinaryMessage, []byte("not an image"))
	msg, _ := out["error"].(string)
	if out["success"] != false || !strings.HasPrefix(msg, "Invalid image data: ") {
		t.Errorf("Non-image frame: unexpected reply %v", out)
	}

	out = exchange(t, conn, websocket.BinaryMessage, image)
	if out["success"] != true {
		t.Errorf("Connection should keep serving after an error frame, got %v", out)
	}
}

func TestDetectWebSocket_ModelNotLoaded(t *testing.T) {
	app := setupApp(detector.NewUnavailable(errors.New("best.onnx not found")))
	conn := dialDetectWS(t, app)

	for _, messageType := range []int{websocket.BinaryMessage, websocket.TextMessage} {
		out := exchange(t, conn, messageType, testPNG(t))
		if out["success"] != false || out["error"] != "Model not loaded. Please check server logs." {
			t.Errorf("Frame type %d: unexpected reply %v", messageType, out)
		}
	}
}
