package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

type captureTransport struct {
	req    *http.Request
	body   []byte
	status int
	reply  string
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.req = req
	t.body, _ = io.ReadAll(req.Body)
	_ = req.Body.Close()
	status := t.status
	if status == 0 {
		status = http.StatusOK
	}
	reply := t.reply
	if reply == "" {
		reply = `{}`
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(reply)),
		Header:     make(http.Header),
	}, nil
}

func newTestSender(rt http.RoundTripper) *FCMSender {
	return &FCMSender{
		projectID:   "pid",
		tokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"}),
		client:      &http.Client{Transport: rt},
	}
}

func decodeMessage(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	message, _ := payload["message"].(map[string]any)
	if message == nil {
		t.Fatalf("missing message payload")
	}
	return message
}

func TestFCMSenderSend_NotificationIncludesAPNSAlert(t *testing.T) {
	rt := &captureTransport{}
	sender := newTestSender(rt)

	err := sender.Send(context.Background(), "fcm-token-1", Message{
		Data: map[string]string{"type": "inscription"},
		Notification: &Notification{
			Title: "New registration",
			Body:  "Alice registered for Spring Meetup.",
		},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if got := rt.req.URL.String(); got != "https://fcm.googleapis.com/v1/projects/pid/messages:send" {
		t.Fatalf("unexpected url: %s", got)
	}
	if got := rt.req.Header.Get("Authorization"); got != "Bearer token" {
		t.Fatalf("unexpected authorization header: %q", got)
	}

	message := decodeMessage(t, rt.body)
	if message["token"] != "fcm-token-1" {
		t.Fatalf("unexpected token: %v", message["token"])
	}
	notification, _ := message["notification"].(map[string]any)
	if notification == nil {
		t.Fatalf("missing notification payload")
	}
	if notification["title"] != "New registration" {
		t.Fatalf("unexpected notification title: %v", notification["title"])
	}

	apns, _ := message["apns"].(map[string]any)
	if apns == nil {
		t.Fatalf("missing apns payload")
	}
	headers, _ := apns["headers"].(map[string]any)
	if headers == nil {
		t.Fatalf("missing apns headers")
	}
	if headers["apns-push-type"] != "alert" {
		t.Fatalf("unexpected apns-push-type: %v", headers["apns-push-type"])
	}
	if headers["apns-priority"] != "10" {
		t.Fatalf("unexpected apns-priority: %v", headers["apns-priority"])
	}
}

func TestFCMSenderSend_DataOnlyOmitsNotificationAndAPNS(t *testing.T) {
	rt := &captureTransport{}
	sender := newTestSender(rt)

	err := sender.Send(context.Background(), "fcm-token-1", Message{
		Data: map[string]string{"type": "validation"},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	message := decodeMessage(t, rt.body)
	if _, ok := message["notification"]; ok {
		t.Fatalf("expected notification to be omitted for data-only")
	}
	if _, ok := message["apns"]; ok {
		t.Fatalf("expected apns to be omitted for data-only")
	}
	data, _ := message["data"].(map[string]any)
	if data["type"] != "validation" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestFCMSenderSend_UnregisteredToken(t *testing.T) {
	rt := &captureTransport{
		status: http.StatusNotFound,
		reply: `{"error":{"status":"NOT_FOUND","message":"Requested entity was not found.",
			"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`,
	}
	err := newTestSender(rt).Send(context.Background(), "stale", Message{})
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestFCMSenderSend_OtherFailure(t *testing.T) {
	rt := &captureTransport{status: http.StatusInternalServerError, reply: `{"error":{"message":"boom"}}`}
	err := newTestSender(rt).Send(context.Background(), "tok", Message{})
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected generic failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestFCMSenderSend_RequiresToken(t *testing.T) {
	rt := &captureTransport{}
	if err := newTestSender(rt).Send(context.Background(), "  ", Message{}); err == nil {
		t.Fatalf("expected error for blank token")
	}
	if rt.req != nil {
		t.Fatalf("expected no request for blank token")
	}
}
