package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maternal-triage-backend/config"
	"maternal-triage-backend/models"
	"maternal-triage-backend/services"
	"maternal-triage-backend/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Send(context.Context, models.NotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func newTestTriageService(n services.Notifier) *services.TriageService {
	dispatcher := services.NewDispatcher(n, services.NewMemoryDeduplicator(time.Hour), services.DispatcherConfig{Timeout: time.Second}, zap.NewNop())
	clock := utils.FixedClock{Day: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	return services.NewTriageService(dispatcher, nil, clock, config.ContactsConfig{PatientName: "Asha", DoctorPhone: "+15550100", DoctorEmail: "doc@example.com"}, zap.NewNop())
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTriageControllerHandleEvent(t *testing.T) {
	notifier := &countingNotifier{}
	tc := NewTriageController(newTestTriageService(notifier))
	router := gin.New()
	router.POST("/events", tc.HandleEvent)

	t.Run("critical daily log", func(t *testing.T) {
		w := postJSON(router, "/events", `{"type":"daily_log","data":{"symptoms":["blurred vision"],"severity":2}}`)

		require.Equal(t, http.StatusOK, w.Code)
		var resp models.EventResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, models.ActionEmergencyCall, resp.Action)
		assert.Equal(t, models.TierCritical, resp.AlertLevel)
		assert.EqualValues(t, 5, resp.Data["score"])
		assert.Equal(t, 1, notifier.count)
	})

	t.Run("unknown intent is a bad request", func(t *testing.T) {
		w := postJSON(router, "/events", `{"type":"horoscope","data":{}}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "Unknown Intent", resp.Error)
	})

	t.Run("missing severity is a bad request", func(t *testing.T) {
		w := postJSON(router, "/events", `{"type":"daily_log","data":{"symptoms":["fever"]}}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Malformed Payload")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		w := postJSON(router, "/events", `{"type":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid request format")
	})
}

func TestMedicationControllerHandleMedication(t *testing.T) {
	mc := NewMedicationController(services.NewMedicationService(zap.NewNop()))
	router := gin.New()
	router.POST("/medication", mc.HandleMedication)

	t.Run("fills the restock date", func(t *testing.T) {
		w := postJSON(router, "/medication", `{"medicine_name":"Iron","dosage_per_intake":1,"frequency_per_day":1,"start_date":"2026-10-01","total_tablets_available":30}`)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Action models.Action         `json:"action"`
			Data   models.MedicationData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.ActionMedication, resp.Action)
		require.NotNil(t, resp.Data.PredictedRestockDate)
		assert.Equal(t, "2026-10-31", *resp.Data.PredictedRestockDate)
		assert.Equal(t, []string{"09:00"}, resp.Data.ScheduleTimes)
	})

	t.Run("bad date", func(t *testing.T) {
		w := postJSON(router, "/medication", `{"start_date":"soon"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWebSocketController(t *testing.T) {
	wc := NewWebSocketController(newTestTriageService(&countingNotifier{}), []string{"*"}, zap.NewNop())
	router := gin.New()
	router.GET("/ws", wc.HandleWebSocket)
	server := httptest.NewServer(router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	t.Run("answers each frame", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": "doubt",
			"data": map[string]string{"text": "what about my diet"},
		}))

		var resp models.EventResponse
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, models.ActionBookAppointment, resp.Action)
		assert.Equal(t, "2026-10-17", resp.Data["date"])
	})

	t.Run("errors keep the connection open", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "unknown", "data": map[string]string{}}))

		var errResp models.ErrorResponse
		require.NoError(t, conn.ReadJSON(&errResp))
		assert.Equal(t, "Unknown Intent", errResp.Error)

		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": "daily_log",
			"data": map[string]interface{}{"symptoms": []string{}, "severity": 1},
		}))
		var resp models.EventResponse
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, models.ActionLogRecorded, resp.Action)
	})
}

func TestWebSocketControllerClose(t *testing.T) {
	wc := NewWebSocketController(newTestTriageService(&countingNotifier{}), []string{"*"}, zap.NewNop())
	router := gin.New()
	router.GET("/ws", wc.HandleWebSocket)
	server := httptest.NewServer(router)
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// one round trip so the handler is registered before closing
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "doubt", "data": map[string]string{"text": "hello"}}))
	var resp models.EventResponse
	require.NoError(t, conn.ReadJSON(&resp))

	closed := make(chan struct{})
	go func() {
		wc.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return while a client was connected")
	}

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	t.Run("new clients are turned away", func(t *testing.T) {
		late, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer late.Close()

		_, _, err = late.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	})
}

func TestWhatsAppController(t *testing.T) {
	var mu sync.Mutex
	var replies []models.WhatsAppSendMessage
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg models.WhatsAppSendMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		mu.Lock()
		replies = append(replies, msg)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer api.Close()

	whatsappService := services.NewWhatsAppService(config.WhatsAppConfig{
		APIURL:        api.URL,
		APIVersion:    "v18.0",
		AccessToken:   "token",
		PhoneNumberID: "1",
		VerifyToken:   "verify-me",
	}, zap.NewNop())
	wc := NewWhatsAppController(whatsappService, newTestTriageService(&countingNotifier{}), zap.NewNop())

	router := gin.New()
	router.GET("/webhook", wc.VerifyWebhook)
	router.POST("/webhook", wc.HandleWebhook)
	router.POST("/send", wc.SendMessage)
	router.GET("/status", wc.GetStatus)

	t.Run("verification echoes the challenge", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "42", w.Body.String())
	})

	t.Run("verification with a wrong token fails", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("inbound text is answered as a doubt", func(t *testing.T) {
		body := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
			"messaging_product":"whatsapp",
			"messages":[
				{"from":"15550100100","id":"wamid.A","type":"text","text":{"body":"my chest feels tight"}},
				{"from":"15550100100","id":"wamid.B","type":"image"}
			]}}]}]}`

		w := postJSON(router, "/webhook", body)
		require.Equal(t, http.StatusOK, w.Code)
		wc.Wait()

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, replies, 1)
		assert.Equal(t, "15550100100", replies[0].To)
		assert.Contains(t, replies[0].Text.Body, "Emergency Consult")
		assert.Contains(t, replies[0].Text.Body, "2026-10-16")
		assert.False(t, whatsappService.GetStatus().LastMessageReceived.IsZero())
	})

	t.Run("manual send requires fields", func(t *testing.T) {
		w := postJSON(router, "/send", `{"to":"15550100100"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("status reports the service", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var status models.WhatsAppServiceStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.Enabled)
		assert.GreaterOrEqual(t, status.MessageCountToday, 1)
	})
}

func TestReplyText(t *testing.T) {
	assert.Equal(t, "Vitals are stable.", replyText(&models.EventResponse{
		Action: models.ActionAnswerDoubt,
		Data:   map[string]interface{}{"message": "Vitals are stable."},
	}))
	assert.NotEmpty(t, replyText(&models.EventResponse{Data: map[string]interface{}{}}))
}
