package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidria/internal/config"
	"vidria/internal/logger"
)

type graphCall struct {
	path        string
	contentType string
	body        []byte
}

type graphStub struct {
	server       *httptest.Server
	calls        []graphCall
	uploadCode   int
	messageCodes []int
}

func newGraphStub(t *testing.T) *graphStub {
	t.Helper()

	stub := &graphStub{uploadCode: http.StatusOK}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stub.calls = append(stub.calls, graphCall{
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})

		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/media"):
			w.WriteHeader(stub.uploadCode)
			if stub.uploadCode == http.StatusOK {
				json.NewEncoder(w).Encode(map[string]string{"id": "media-123"})
			}
		case strings.HasSuffix(r.URL.Path, "/messages"):
			code := http.StatusOK
			if len(stub.messageCodes) > 0 {
				code = stub.messageCodes[0]
				stub.messageCodes = stub.messageCodes[1:]
			}
			w.WriteHeader(code)
			if code == http.StatusOK {
				json.NewEncoder(w).Encode(map[string]string{"messaging_product": "whatsapp"})
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *graphStub) messageBodies(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, call := range s.calls {
		if !strings.HasSuffix(call.path, "/messages") {
			continue
		}
		var parsed map[string]interface{}
		require.NoError(t, json.Unmarshal(call.body, &parsed))
		out = append(out, parsed)
	}
	return out
}

func newTestNotifier(stub *graphStub) *WhatsAppNotifier {
	return NewWhatsAppNotifier(config.WhatsAppConfig{
		APIBaseURL:    stub.server.URL,
		AccessToken:   "test-token",
		PhoneNumberID: "1234567890",
	}, logger.NopLogger())
}

func TestSendText(t *testing.T) {
	stub := newGraphStub(t)
	n := newTestNotifier(stub)

	err := n.SendText(context.Background(), "+573001112233", "Alert: person at front door")
	require.NoError(t, err)

	messages := stub.messageBodies(t)
	require.Len(t, messages, 1)
	assert.Equal(t, "whatsapp", messages[0]["messaging_product"])
	assert.Equal(t, "+573001112233", messages[0]["to"])
	assert.Equal(t, "text", messages[0]["type"])
	assert.Equal(t, "/1234567890/messages", stub.calls[0].path)
}

func TestSendTextEmptyDestination(t *testing.T) {
	stub := newGraphStub(t)
	n := newTestNotifier(stub)

	err := n.SendText(context.Background(), "", "hi")
	assert.Error(t, err)
	assert.Empty(t, stub.calls)
}

func TestSendTextNon2xx(t *testing.T) {
	stub := newGraphStub(t)
	stub.messageCodes = []int{http.StatusBadRequest}
	n := newTestNotifier(stub)

	err := n.SendText(context.Background(), "+573001112233", "hi")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSendImageUploadsThenSends(t *testing.T) {
	stub := newGraphStub(t)
	n := newTestNotifier(stub)

	err := n.SendImage(context.Background(), "+573001112233", []byte{0xff, 0xd8}, "caption here")
	require.NoError(t, err)

	require.Len(t, stub.calls, 2)
	assert.Equal(t, "/1234567890/media", stub.calls[0].path)
	assert.Contains(t, stub.calls[0].contentType, "multipart/form-data")
	assert.Contains(t, string(stub.calls[0].body), "snapshot.jpg")

	messages := stub.messageBodies(t)
	require.Len(t, messages, 1)
	assert.Equal(t, "image", messages[0]["type"])
	image := messages[0]["image"].(map[string]interface{})
	assert.Equal(t, "media-123", image["id"])
	assert.Equal(t, "caption here", image["caption"])
}

func TestSendImageUploadFailureFallsBackToText(t *testing.T) {
	stub := newGraphStub(t)
	stub.uploadCode = http.StatusInternalServerError
	n := newTestNotifier(stub)

	err := n.SendImage(context.Background(), "+573001112233", []byte{0xff}, "caption here")
	require.NoError(t, err)

	messages := stub.messageBodies(t)
	require.Len(t, messages, 1)
	assert.Equal(t, "text", messages[0]["type"])
	text := messages[0]["text"].(map[string]interface{})
	assert.Equal(t, "caption here", text["body"])
}

func TestSendImageEmptySnapshotFallsBackToText(t *testing.T) {
	stub := newGraphStub(t)
	n := newTestNotifier(stub)

	err := n.SendImage(context.Background(), "+573001112233", nil, "caption here")
	require.NoError(t, err)

	// no upload attempt for an empty snapshot, just the text fallback
	messages := stub.messageBodies(t)
	require.Len(t, messages, 1)
	assert.Equal(t, "text", messages[0]["type"])
	for _, call := range stub.calls {
		assert.False(t, strings.HasSuffix(call.path, "/media"))
	}
}

func TestSendImageMessageFailureFallsBackToText(t *testing.T) {
	stub := newGraphStub(t)
	n := newTestNotifier(stub)

	// upload succeeds, then the image message is rejected, then the text
	// fallback succeeds
	stub.messageCodes = []int{http.StatusBadRequest, http.StatusOK}

	err := n.SendImage(context.Background(), "+573001112233", []byte{0xff}, "caption here")
	require.NoError(t, err)

	messages := stub.messageBodies(t)
	require.Len(t, messages, 2)
	assert.Equal(t, "image", messages[0]["type"])
	assert.Equal(t, "text", messages[1]["type"])
}
