package websocket_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictify/api/websocket"
	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/pkg/config"
	"github.com/OldStager01/predictify/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func dial(t *testing.T, baseURL, query string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws" + query
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *gws.Conn) websocket.OutgoingMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg websocket.OutgoingMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestBridge_RoutesBySubscription(t *testing.T) {
	hub := websocket.NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	router := gin.New()
	router.GET("/ws", websocket.ServeWebSocket(hub, nil))
	srv := httptest.NewServer(router)
	defer srv.Close()

	follower := dial(t, srv.URL, "?event_id=evt-1")
	other := dial(t, srv.URL, "?event_id=evt-2")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	bus := events.NewEventBus(10)
	defer bus.Close()
	bridge := websocket.NewEventBridge(hub, bus.SubscribeAll())
	bridge.Start()
	defer bridge.Stop()

	publisher := events.NewPublisher(bus)
	publisher.InterestRegistered("evt-1", 3, 42)

	msg := read(t, follower)
	assert.Equal(t, websocket.MessageTypeInterest, msg.Type)
	assert.Equal(t, "evt-1", msg.EventID)

	publisher.RescoreComplete(&models.RescoreSummary{Scored: 2})

	assert.Equal(t, websocket.MessageTypeRescore, read(t, other).Type)
	assert.Equal(t, websocket.MessageTypeRescore, read(t, follower).Type)

	require.NoError(t, other.WriteJSON(websocket.IncomingMessage{Type: "subscribe", EventID: "evt-9"}))
	confirmation := read(t, other)
	assert.Equal(t, websocket.MessageTypeSubscription, confirmation.Type)
	assert.Equal(t, "subscribed", confirmation.Action)

	publisher.PredictionComputed("evt-9", &models.Prediction{Probability: 71, Level: models.LevelHigh}, false)
	msg = read(t, other)
	assert.Equal(t, websocket.MessageTypePrediction, msg.Type)
	assert.Equal(t, "evt-9", msg.EventID)
}

func TestServeWebSocket_ConnectionLimit(t *testing.T) {
	hub := websocket.NewHub(&config.WebSocketConfig{MaxConnections: 1})
	go hub.Run()
	defer hub.Stop()

	router := gin.New()
	router.GET("/ws", websocket.ServeWebSocket(hub, nil))
	srv := httptest.NewServer(router)
	defer srv.Close()

	dial(t, srv.URL, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestFromBusEvent(t *testing.T) {
	tests := []struct {
		eventType models.EventType
		want      websocket.MessageType
	}{
		{models.EventTypePredictionComputed, websocket.MessageTypePrediction},
		{models.EventTypeStatusChanged, websocket.MessageTypeStatus},
		{models.EventTypeAlert, websocket.MessageTypeAlert},
		{models.EventTypeEventCreated, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			msg := websocket.FromBusEvent(models.NewBusEvent(tt.eventType, "evt-1", "message"))
			if tt.want == "" {
				assert.Nil(t, msg)
				return
			}
			require.NotNil(t, msg)
			assert.Equal(t, tt.want, msg.Type)
			assert.Equal(t, "message", msg.Message)
		})
	}
}

func TestNewSettings(t *testing.T) {
	defaults := websocket.NewSettings(nil)
	assert.Equal(t, 60*time.Second, defaults.PongWait)
	assert.Equal(t, 54*time.Second, defaults.PingPeriod)
	assert.Equal(t, int64(512), defaults.MaxMessageSize)

	custom := websocket.NewSettings(&config.WebSocketConfig{
		PongTimeout:  10 * time.Second,
		PingInterval: 30 * time.Second,
		ClientBuffer: 8,
	})
	assert.Equal(t, 9*time.Second, custom.PingPeriod)
	assert.Equal(t, 8, custom.ClientBuffer)
}
