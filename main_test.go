package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"travellog/config"
	"travellog/db"
	"travellog/handlers"
	"travellog/mapview"
	"travellog/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	// sign in returns the verification token directly in debug mode
	config.DEBUG_MODE = true
	if err := db.OpenSQLite(":memory:"); err != nil {
		panic(err)
	}
	if err := db.CheckForeignKeys(db.Instance); err != nil {
		panic(err)
	}
	if err := models.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testClient struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	server := httptest.NewServer(setupRouter())
	t.Cleanup(server.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, server: server, http: &http.Client{Jar: jar}}
}

func (tc *testClient) do(method, path string, body any, out any) int {
	tc.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(tc.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, tc.server.URL+path, reader)
	require.NoError(tc.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := tc.http.Do(req)
	require.NoError(tc.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(tc.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (tc *testClient) form(path string, values url.Values, out any) int {
	tc.t.Helper()
	resp, err := tc.http.PostForm(tc.server.URL+path, values)
	require.NoError(tc.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(tc.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (tc *testClient) signIn(email string) models.User {
	tc.t.Helper()
	issued := struct {
		Token string `json:"token"`
	}{}
	require.Equal(tc.t, http.StatusOK, tc.form("/auth/signin", url.Values{"email": {email}}, &issued))
	require.NotEmpty(tc.t, issued.Token)

	signedIn := struct {
		User models.User `json:"user"`
	}{}
	require.Equal(tc.t, http.StatusOK, tc.form("/auth/callback", url.Values{"email": {email}, "token": {issued.Token}}, &signedIn))
	require.NotEmpty(tc.t, signedIn.User.ID)
	return signedIn.User
}

func (tc *testClient) createLog(title string, lat, lng float64) models.TravelLog {
	tc.t.Helper()
	log := models.TravelLog{}
	status := tc.do(http.MethodPost, "/log/create", gin.H{
		"title":       title,
		"description": "visited",
		"image":       "https://example.com/" + strings.ToLower(title) + ".jpg",
		"rating":      7,
		"visit_date":  "2023-05-16",
		"latitude":    lat,
		"longitude":   lng,
	}, &log)
	require.Equal(tc.t, http.StatusOK, status)
	return log
}

func TestSignInFlow(t *testing.T) {
	tc := newTestClient(t)
	assert.Equal(t, http.StatusUnauthorized, tc.do(http.MethodGet, "/user/status", nil, nil))

	user := tc.signIn("Traveller@Example.com")
	assert.Equal(t, "traveller@example.com", user.Email)
	assert.NotNil(t, user.EmailVerified)

	status := struct {
		User models.User `json:"user"`
	}{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/user/status", nil, &status))
	assert.Equal(t, user.ID, status.User.ID)

	accounts := []models.Account{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/user/accounts", nil, &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "email", accounts[0].Provider)

	// Signing in again reuses the user
	again := tc.signIn("traveller@example.com")
	assert.Equal(t, user.ID, again.ID)

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/auth/signout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, tc.do(http.MethodGet, "/user/status", nil, nil))
}

func TestSignIn_TokenIsSingleUse(t *testing.T) {
	tc := newTestClient(t)
	issued := struct {
		Token string `json:"token"`
	}{}
	require.Equal(t, http.StatusOK, tc.form("/auth/signin", url.Values{"email": {"once@example.com"}}, &issued))
	values := url.Values{"email": {"once@example.com"}, "token": {issued.Token}}
	assert.Equal(t, http.StatusOK, tc.form("/auth/callback", values, nil))
	assert.Equal(t, http.StatusUnauthorized, tc.form("/auth/callback", values, nil))

	assert.Equal(t, http.StatusBadRequest, tc.form("/auth/signin", url.Values{"email": {"not an email"}}, nil))
}

func TestTravelLogHandlers(t *testing.T) {
	tc := newTestClient(t)
	tc.signIn("logs@example.com")

	first := tc.createLog("Obelisco", -34.6037, -58.3816)
	second := tc.createLog("Liberty", 40.6892, -74.0445)
	assert.NotEmpty(t, first.ID)

	logs := []models.TravelLog{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/log/list", nil, &logs))
	assert.Len(t, logs, 2)

	got := models.TravelLog{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/log/get?id="+second.ID, nil, &got))
	assert.Equal(t, "Liberty", got.Title)
	assert.Equal(t, http.StatusNotFound, tc.do(http.MethodGet, "/log/get?id=missing", nil, nil))

	bad := []gin.H{
		{"title": "", "description": "d", "image": "https://example.com/a.jpg", "rating": 5, "visit_date": "2023-01-01", "latitude": 0, "longitude": 0},
		{"title": "t", "description": "d", "image": "https://example.com/a.jpg", "rating": 11, "visit_date": "2023-01-01", "latitude": 0, "longitude": 0},
		{"title": "t", "description": "d", "image": "https://example.com/a.jpg", "rating": 5, "visit_date": "2023-01-01", "latitude": 91, "longitude": 0},
		{"title": "t", "description": "d", "image": "https://example.com/a.jpg", "rating": 5, "visit_date": "yesterday", "latitude": 0, "longitude": 0},
		{"title": "t", "description": "d", "image": "not a url", "rating": 5, "visit_date": "2023-01-01", "latitude": 0, "longitude": 0},
	}
	for _, body := range bad {
		assert.Equal(t, http.StatusBadRequest, tc.do(http.MethodPost, "/log/create", body, nil), "%v", body)
	}

	// Other users cannot see or delete the entries
	other := newTestClient(t)
	other.signIn("other@example.com")
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/log/get?id="+first.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodPost, "/log/delete", gin.H{"id": first.ID}, nil))

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/log/delete", gin.H{"id": first.ID}, nil))
	assert.Equal(t, http.StatusNotFound, tc.do(http.MethodPost, "/log/delete", gin.H{"id": first.ID}, nil))
}

func TestMapConfig(t *testing.T) {
	tc := newTestClient(t)
	resp, err := tc.http.Get(tc.server.URL + "/map/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	opt := mapview.Options{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opt))
	assert.Equal(t, 3, opt.MinZoom)
	assert.Equal(t, 10, opt.MaxZoom)
	assert.False(t, opt.AttributionControl)
	assert.Equal(t, 6, opt.Fallback.Zoom)
}

func TestMapFrameAndMarkers(t *testing.T) {
	tc := newTestClient(t)
	tc.signIn("frame@example.com")

	frame := struct {
		Camera  *struct{ Zoom int } `json:"camera"`
		Skipped []string            `json:"skipped"`
	}{}
	// No entries: the fallback camera
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/map/frame?width=800&height=600", nil, &frame))
	require.NotNil(t, frame.Camera)
	assert.Equal(t, 6, frame.Camera.Zoom)
	assert.Equal(t, http.StatusBadRequest, tc.do(http.MethodGet, "/map/frame?width=0&height=600", nil, nil))

	tc.createLog("Obelisco", -34.6037, -58.3816)
	tc.createLog("Liberty", 40.6892, -74.0445)
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/map/frame?width=800&height=600", nil, &frame))
	assert.Equal(t, 3, frame.Camera.Zoom)
	assert.Empty(t, frame.Skipped)

	markers := handlers.MapMarkersResponse{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/map/markers", nil, &markers))
	require.Len(t, markers.Markers, 2)
	for _, m := range markers.Markers {
		assert.Equal(t, mapview.IconEntry, m.Icon)
		assert.Equal(t, "5/16/2023", m.Popup.VisitDate)
	}
	assert.Equal(t, http.StatusNotFound, tc.do(http.MethodGet, "/map/markers?view=missing", nil, nil))
}

func TestMapViewLifecycle(t *testing.T) {
	tc := newTestClient(t)
	tc.signIn("views@example.com")
	tc.createLog("Obelisco", -34.6037, -58.3816)

	state := mapview.State{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/map/views", nil, &state))
	require.NotEmpty(t, state.ID)
	assert.False(t, state.LayoutReady)
	assert.Nil(t, state.Camera)
	assert.True(t, state.Dragging)
	assert.Equal(t, 1, state.Entries)
	base := "/map/views/" + state.ID

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, base+"/layout", gin.H{"width": 800, "height": 600}, &state))
	require.NotNil(t, state.Camera)
	assert.Equal(t, 10, state.Camera.Zoom)
	assert.Equal(t, http.StatusBadRequest, tc.do(http.MethodPost, base+"/layout", gin.H{"width": 0, "height": 600}, nil))

	// A new entry reframes mounted views
	tc.createLog("Liberty", 40.6892, -74.0445)
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, base+"/state", nil, &state))
	assert.Equal(t, 2, state.Entries)
	assert.Equal(t, 3, state.Camera.Zoom)

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, base+"/click", gin.H{"lat": 10.5, "lng": 20.25}, &state))
	assert.True(t, state.Selection.Selected)
	require.NotNil(t, state.Selection.Point)
	assert.Equal(t, 10.5, state.Selection.Point.Lat)

	markers := handlers.MapMarkersResponse{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodGet, "/map/markers?view="+state.ID, nil, &markers))
	require.Len(t, markers.Markers, 3)
	last := markers.Markers[len(markers.Markers)-1]
	assert.Equal(t, mapview.IconSelection, last.Icon)
	assert.Equal(t, mapview.SelectionLabel, last.Popup.Label)

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, base+"/pointer", gin.H{"inside": false}, &state))
	assert.False(t, state.Dragging)
	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, base+"/pointer", gin.H{"inside": true}, &state))
	assert.True(t, state.Dragging)

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, base+"/clear", nil, &state))
	assert.False(t, state.Selection.Selected)

	// Views are private to their owner
	other := newTestClient(t)
	other.signIn("views-other@example.com")
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, base+"/state", nil, nil))
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodDelete, base, nil, nil))

	require.Equal(t, http.StatusOK, tc.do(http.MethodDelete, base, nil, nil))
	assert.Equal(t, http.StatusNotFound, tc.do(http.MethodGet, base+"/state", nil, nil))
}

func TestMapViewWebSocket(t *testing.T) {
	tc := newTestClient(t)
	tc.signIn("socket@example.com")
	tc.createLog("Obelisco", -34.6037, -58.3816)

	state := mapview.State{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/map/views", nil, &state))

	wsURL := "ws" + strings.TrimPrefix(tc.server.URL, "http") + "/map/views/" + state.ID + "/ws"
	dialer := websocket.Dialer{Jar: tc.http.Jar, HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() map[string]any {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		msg := map[string]any{}
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, "state", read()["type"])

	require.NoError(t, conn.WriteJSON(gin.H{"type": "layout", "width": 800, "height": 600}))
	msg := read()
	assert.Equal(t, "camera", msg["type"])
	camera := msg["camera"].(map[string]any)
	assert.EqualValues(t, 10, camera["zoom"])

	require.NoError(t, conn.WriteJSON(gin.H{"type": "click", "lat": 1.5, "lng": 2.5}))
	msg = read()
	assert.Equal(t, "selection", msg["type"])

	// Dragging starts enabled, so the first enter changes nothing
	require.NoError(t, conn.WriteJSON(gin.H{"type": "enter"}))
	require.NoError(t, conn.WriteJSON(gin.H{"type": "leave"}))
	msg = read()
	assert.Equal(t, "dragging", msg["type"])
	assert.Equal(t, false, msg["dragging"])

	require.NoError(t, conn.WriteJSON(gin.H{"type": "leave"}))
	require.NoError(t, conn.WriteJSON(gin.H{"type": "enter"}))
	msg = read()
	assert.Equal(t, "dragging", msg["type"])
	assert.Equal(t, true, msg["dragging"])

	require.NoError(t, conn.WriteJSON(gin.H{"type": "teleport"}))
	assert.Equal(t, "error", read()["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(data))

	// Unknown views are rejected before the upgrade
	_, resp, err := dialer.Dial("ws"+strings.TrimPrefix(tc.server.URL, "http")+"/map/views/missing/ws", nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (tc *testClient) mountView() string {
	tc.t.Helper()
	state := mapview.State{}
	require.Equal(tc.t, http.StatusOK, tc.do(http.MethodPost, "/map/views", nil, &state))
	require.NotEmpty(tc.t, state.ID)
	return state.ID
}

func (tc *testClient) dialView(id string, header http.Header) (*websocket.Conn, *http.Response, error) {
	tc.t.Helper()
	dialer := websocket.Dialer{Jar: tc.http.Jar, HandshakeTimeout: 5 * time.Second}
	wsURL := "ws" + strings.TrimPrefix(tc.server.URL, "http") + "/map/views/" + id + "/ws"
	return dialer.Dial(wsURL, header)
}

// readUntilClosed drains the socket and returns the error that ended it
func readUntilClosed(t *testing.T, conn *websocket.Conn) error {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return err
		}
	}
}

func TestMapViewWebSocket_ClosedWhenViewUnmounted(t *testing.T) {
	tc := newTestClient(t)
	tc.signIn("socket-close@example.com")

	// DELETE of the view
	id := tc.mountView()
	conn, _, err := tc.dialView(id, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, http.StatusOK, tc.do(http.MethodDelete, "/map/views/"+id, nil, nil))
	err = readUntilClosed(t, conn)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// Sign out
	id = tc.mountView()
	conn2, _, err := tc.dialView(id, nil)
	require.NoError(t, err)
	defer conn2.Close()
	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/auth/signout", nil, nil))
	err = readUntilClosed(t, conn2)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestMapViewWebSocket_SingleStream(t *testing.T) {
	tc := newTestClient(t)
	tc.signIn("socket-single@example.com")
	id := tc.mountView()

	conn, _, err := tc.dialView(id, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, resp, err := tc.dialView(id, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The first stream keeps working
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	msg := map[string]any{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "state", msg["type"])
}

func TestMapViewWebSocket_Origin(t *testing.T) {
	tc := newTestClient(t)
	tc.signIn("socket-origin@example.com")
	id := tc.mountView()

	_, resp, err := tc.dialView(id, http.Header{"Origin": {"http://evil.example"}})
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A rejected handshake leaves the view free for the real client
	conn, _, err := tc.dialView(id, http.Header{"Origin": {tc.server.URL}})
	require.NoError(t, err)
	conn.Close()
}

func TestUserDeleteCascades(t *testing.T) {
	tc := newTestClient(t)
	user := tc.signIn("leaving@example.com")
	tc.createLog("Obelisco", -34.6037, -58.3816)
	state := mapview.State{}
	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/map/views", nil, &state))

	require.Equal(t, http.StatusOK, tc.do(http.MethodPost, "/user/delete", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, tc.do(http.MethodGet, "/user/status", nil, nil))

	var count int64
	require.NoError(t, db.Instance.Model(&models.TravelLog{}).Where(&models.TravelLog{UserID: user.ID}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Instance.Model(&models.Account{}).Where(&models.Account{UserID: user.ID}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Instance.Model(&models.Session{}).Where(&models.Session{UserID: user.ID}).Count(&count).Error)
	assert.Zero(t, count)

	_, err := handlers.Views.Get(state.ID, user.ID)
	assert.ErrorIs(t, err, mapview.ErrViewNotFound)
}
