package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, env *testEnv, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=" + env.token(t, userID)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, typ string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func TestWebSocketRoomFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := dialWS(t, env, "alice")
	bob := dialWS(t, env, "bob")

	sendWS(t, alice, "join_room", map[string]any{"roomId": "course-1"})
	_, joined := readNext(alice, t, "joined")
	if joined["roomId"] != "course-1" {
		t.Fatalf("unexpected joined payload %v", joined)
	}
	sendWS(t, bob, "join_room", map[string]any{"roomId": "course-1"})
	readNext(bob, t, "joined")

	// typing reaches bob only; alice's next event is her own message
	sendWS(t, alice, "typing", map[string]any{"roomId": "course-1"})
	_, typing := readNext(bob, t, "user_typing")
	if typing["userId"] != "alice" || typing["userName"] != "alice" {
		t.Fatalf("unexpected typing payload %v", typing)
	}

	sendWS(t, alice, "new_message", map[string]any{"roomId": "course-1", "text": "hello"})
	for _, c := range []*websocket.Conn{alice, bob} {
		_, msg := readNext(c, t, "message")
		if msg["text"] != "hello" || msg["authorId"] != "alice" {
			t.Fatalf("unexpected message payload %v", msg)
		}
	}
}

func TestWebSocketPollFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := dialWS(t, env, "alice")
	bob := dialWS(t, env, "bob")
	for _, c := range []*websocket.Conn{alice, bob} {
		sendWS(t, c, "join_room", map[string]any{"roomId": "course-1"})
		readNext(c, t, "joined")
	}

	sendWS(t, alice, "live_poll_create", map[string]any{
		"courseId": "course-1",
		"question": "Ready?",
		"options":  []string{"yes", "no"},
	})
	var pollID string
	for _, c := range []*websocket.Conn{alice, bob} {
		_, poll := readNext(c, t, "poll_created")
		pollID, _ = poll["id"].(string)
	}
	if pollID == "" {
		t.Fatalf("expected poll id")
	}

	sendWS(t, bob, "live_poll_vote", map[string]any{"pollId": pollID, "optionKey": "A"})
	for _, c := range []*websocket.Conn{alice, bob} {
		_, results := readNext(c, t, "poll_results")
		tally, _ := results["results"].(map[string]any)
		if tally["A"] != float64(1) || tally["B"] != float64(0) {
			t.Fatalf("unexpected tally %v", results)
		}
	}

	// unknown option: no reply and no broadcast
	sendWS(t, bob, "live_poll_vote", map[string]any{"pollId": pollID, "optionKey": "Z"})

	sendWS(t, alice, "live_poll_close", map[string]any{"pollId": pollID})
	for _, c := range []*websocket.Conn{alice, bob} {
		_, closed := readNext(c, t, "poll_closed")
		if closed["isOpen"] != false {
			t.Fatalf("expected closed poll, got %v", closed)
		}
	}

	// votes after close are ignored silently as well
	sendWS(t, bob, "live_poll_vote", map[string]any{"pollId": pollID, "optionKey": "A"})
	sendWS(t, bob, "bogus", map[string]any{})
	_, errPayload := readNext(bob, t, "error")
	if errPayload["code"] != CodeInvalidInput {
		t.Fatalf("unexpected error payload %v", errPayload)
	}
}

func TestWebSocketValidationError(t *testing.T) {
	env := newTestEnv(t)
	alice := dialWS(t, env, "alice")

	sendWS(t, alice, "new_message", map[string]any{"roomId": "course-1"})
	_, payload := readNext(alice, t, "error")
	if payload["code"] != CodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", payload)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}
