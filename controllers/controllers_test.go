package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hotel-booking/auth"
	"hotel-booking/logger"
	"hotel-booking/middleware"
	"hotel-booking/models"
	"hotel-booking/services"
	"hotel-booking/storage"
)

const (
	testLinkID = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	testSecret = "controllers-test-secret-0123456789"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// --- session ---

type sessionFixture struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	jwt    *auth.JWTManager
	ver    *auth.Verifier
}

func newSessionFixture(t *testing.T) *sessionFixture {
	db, mock := newMockDB(t)
	jwt := auth.NewJWTManager(testSecret, time.Hour)
	ver := auth.NewVerifier(jwt, auth.NewRedisRevocationStore(newRedis(t)), "session")
	sc := NewSessionController(services.NewSessionService(db, jwt), ver, false, logger.NewTestLogger(t))

	r := gin.New()
	r.POST("/api/session/login", sc.Login)
	r.POST("/api/session/logout", sc.Logout)
	r.POST("/api/session/verify", sc.Verify)
	return &sessionFixture{router: r, mock: mock, jwt: jwt, ver: ver}
}

func (f *sessionFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func hotelierRows(t *testing.T) *sqlmock.Rows {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "hotel_id"}).
		AddRow("u1", "owner@alpenhof.test", string(hash), models.RoleHotelier, "H1")
}

func TestSessionController_Login(t *testing.T) {
	f := newSessionFixture(t)
	f.mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(hotelierRows(t))

	w := f.serve(jsonRequest(http.MethodPost, "/api/session/login", `{"email":"Owner@Alpenhof.test","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "hotelier", body["role"])
	assert.Equal(t, "H1", body["hotelId"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestSessionController_LoginFailuresAreGeneric(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		expect func(f *sessionFixture)
	}{
		{
			name: "wrong password",
			body: `{"email":"owner@alpenhof.test","password":"wrong"}`,
			expect: func(f *sessionFixture) {
				f.mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(hotelierRows(t))
			},
		},
		{
			name: "unknown email",
			body: `{"email":"nobody@alpenhof.test","password":"correct-horse"}`,
			expect: func(f *sessionFixture) {
				f.mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
		},
		{
			name:   "empty password",
			body:   `{"email":"owner@alpenhof.test","password":""}`,
			expect: func(*sessionFixture) {},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			tt.expect(f)

			w := f.serve(jsonRequest(http.MethodPost, "/api/session/login", tt.body))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, map[string]interface{}{"success": false, "error": "Invalid email or password"}, decode(t, w))
			assert.Empty(t, w.Result().Cookies())
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestSessionController_Verify(t *testing.T) {
	f := newSessionFixture(t)
	token, _, err := f.jwt.GenerateToken(auth.Agency{ID: "a1", Address: "ops@agency.test"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/session/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.serve(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"success": true, "role": "agency"}, decode(t, w))
}

func TestSessionController_VerifyRejectsRevokedAndMissing(t *testing.T) {
	f := newSessionFixture(t)
	token, sess, err := f.jwt.GenerateToken(auth.Hotelier{ID: "u1", Address: "owner@alpenhof.test", HotelID: "H1"})
	require.NoError(t, err)
	require.NoError(t, f.ver.Revoke(context.Background(), &sess))

	notSignedIn := map[string]interface{}{"success": false, "error": "Not signed in"}

	req := httptest.NewRequest(http.MethodPost, "/api/session/verify", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	w := f.serve(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, notSignedIn, decode(t, w))

	w = f.serve(httptest.NewRequest(http.MethodPost, "/api/session/verify", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, notSignedIn, decode(t, w))
}

func TestSessionController_LogoutRevokes(t *testing.T) {
	f := newSessionFixture(t)
	token, _, err := f.jwt.GenerateToken(auth.Agency{ID: "a1", Address: "ops@agency.test"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/session/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	w := f.serve(req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)

	_, err = f.ver.Verify(context.Background(), token)
	assert.Error(t, err)
}

// --- guest ---

type guestFixture struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
}

func newGuestFixture(t *testing.T) *guestFixture {
	db, mock := newMockDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	resolver := services.NewLinkResolver(db)
	guests := services.NewGuestService(db, resolver, services.NewDraftStore(newRedis(t)), store, nil, log)
	t.Cleanup(guests.Wait)
	gc := NewGuestController(resolver, guests, log)

	r := gin.New()
	g := r.Group("/api/guest/:linkId")
	g.GET("", gc.Resolve)
	g.GET("/wizard", gc.GetWizard)
	g.POST("/wizard/next", gc.Next)
	g.POST("/wizard/files/:slot", middleware.LimitBody(MaxUploadRequestBytes), gc.UploadFile)
	return &guestFixture{router: r, mock: mock}
}

func (f *guestFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func linkRows(t *testing.T, status string, expiresAt time.Time) *sqlmock.Rows {
	prefill, err := json.Marshal(models.Prefill{
		GuestName:  "Anna Berg",
		CheckIn:    "2026-07-01",
		CheckOut:   "2026-07-04",
		Rooms:      []models.RoomLine{{Category: "Double", Adults: 1}},
		PriceTotal: 210,
	})
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "booking_id", "hotel_id", "status", "prefill", "created_at", "expires_at"}).
		AddRow(testLinkID, "b1", "h1", status, prefill, time.Now().Add(-time.Hour), expiresAt)
}

func (f *guestFixture) expectOpen(t *testing.T) {
	f.mock.ExpectQuery("SELECT \\* FROM `booking_links`").
		WillReturnRows(linkRows(t, models.LinkStatusActive, time.Now().Add(24*time.Hour)))
	f.mock.ExpectQuery("SELECT \\* FROM `hotels`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("h1", "Alpenhof"))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	envelope, ok := decode(t, w)["error"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return envelope["code"].(string)
}

func TestGuestController_ResolveStates(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		rows   func(t *testing.T) *sqlmock.Rows
		status int
		code   string
	}{
		{"used", testLinkID, func(t *testing.T) *sqlmock.Rows {
			return linkRows(t, models.LinkStatusUsed, time.Now().Add(time.Hour))
		}, http.StatusConflict, "error.linkUsed"},
		{"expired", testLinkID, func(t *testing.T) *sqlmock.Rows {
			return linkRows(t, models.LinkStatusActive, time.Now().Add(-time.Hour))
		}, http.StatusGone, "error.linkExpired"},
		{"unknown", testLinkID, func(*testing.T) *sqlmock.Rows {
			return sqlmock.NewRows([]string{"id"})
		}, http.StatusNotFound, "error.linkNotFound"},
		{"malformed", "not-a-token", nil, http.StatusNotFound, "error.linkNotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGuestFixture(t)
			if tt.rows != nil {
				f.mock.ExpectQuery("SELECT \\* FROM `booking_links`").WillReturnRows(tt.rows(t))
			}

			w := f.serve(httptest.NewRequest(http.MethodGet, "/api/guest/"+tt.token, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestGuestController_Resolve(t *testing.T) {
	f := newGuestFixture(t)
	f.expectOpen(t)

	w := f.serve(httptest.NewRequest(http.MethodGet, "/api/guest/"+testLinkID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	link := decode(t, w)["link"].(map[string]interface{})
	assert.Equal(t, "Alpenhof", link["hotelName"])
	assert.NotContains(t, link, "hotelId")
}

func TestGuestController_NextValidationKeepsView(t *testing.T) {
	f := newGuestFixture(t)
	f.expectOpen(t)

	w := f.serve(jsonRequest(http.MethodPost, "/api/guest/"+testLinkID+"/wizard/next",
		`{"guestInfo":{"firstName":"Anna","documentOption":"on_site"}}`))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decode(t, w)
	wizard := body["wizard"].(map[string]interface{})
	assert.Equal(t, "guest_info", wizard["step"])
	assert.Equal(t, "Anna", wizard["guestInfo"].(map[string]interface{})["firstName"])

	envelope := body["error"].(map[string]interface{})
	assert.Equal(t, "error.validation", envelope["code"])
	fields := envelope["fields"].(map[string]interface{})
	assert.Equal(t, "Last name is required", fields["lastName"])
	assert.Equal(t, "Email is required", fields["email"])
	assert.NotContains(t, fields, "firstName")

	f.expectOpen(t)
	w = f.serve(httptest.NewRequest(http.MethodGet, "/api/guest/"+testLinkID+"/wizard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	wizard = decode(t, w)["wizard"].(map[string]interface{})
	assert.Equal(t, "Anna", wizard["guestInfo"].(map[string]interface{})["firstName"])
}

func multipartUpload(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func uploadedSlot(t *testing.T, w *httptest.ResponseRecorder, slot string) map[string]interface{} {
	t.Helper()
	wizard := decode(t, w)["wizard"].(map[string]interface{})
	files := wizard["files"].(map[string]interface{})
	state, ok := files[slot].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return state
}

func TestGuestController_UploadRejectedTypeIsRecorded(t *testing.T) {
	f := newGuestFixture(t)
	f.expectOpen(t)

	w := f.serve(multipartUpload(t, "/api/guest/"+testLinkID+"/wizard/files/id_front", "notes.txt", []byte("plain text, not a document")))
	require.Equal(t, http.StatusOK, w.Code)

	slot := uploadedSlot(t, w, "id_front")
	assert.Equal(t, storage.ErrUnsupportedType.Error(), slot["error"])
	assert.Equal(t, false, slot["uploaded"])
}

func TestGuestController_UploadOversizedBodyIsRecorded(t *testing.T) {
	f := newGuestFixture(t)
	f.expectOpen(t)

	content := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, MaxUploadRequestBytes)...)
	w := f.serve(multipartUpload(t, "/api/guest/"+testLinkID+"/wizard/files/id_back", "scan.png", content))
	require.Equal(t, http.StatusOK, w.Code)

	slot := uploadedSlot(t, w, "id_back")
	assert.Equal(t, storage.ErrFileTooLarge.Error(), slot["error"])
	assert.Equal(t, false, slot["uploaded"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGuestController_UploadUnknownSlot(t *testing.T) {
	f := newGuestFixture(t)

	w := f.serve(multipartUpload(t, "/api/guest/"+testLinkID+"/wizard/files/selfie", "me.png", []byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error.unknownFileSlot", errorCode(t, w))
}

// --- error mapping ---

func TestRespondError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrLinkUsed, http.StatusConflict, "error.linkUsed"},
		{services.ErrLinkExpired, http.StatusGone, "error.linkExpired"},
		{services.ErrLinkNotFound, http.StatusNotFound, "error.linkNotFound"},
		{services.ErrHotelNotFound, http.StatusNotFound, "error.hotelNotFound"},
		{services.ErrBookingNotFound, http.StatusNotFound, "error.bookingNotFound"},
		{services.ErrWizardStep, http.StatusConflict, "error.wizardStep"},
		{services.ErrDraftConflict, http.StatusConflict, "error.draftConflict"},
		{services.ErrUnknownFileSlot, http.StatusNotFound, "error.unknownFileSlot"},
		{services.ErrEmailTaken, http.StatusConflict, "error.emailTaken"},
		{services.ErrTextUnavailable, http.StatusServiceUnavailable, "error.textUnavailable"},
		{fmt.Errorf("load link: %w", services.ErrLinkUsed), http.StatusConflict, "error.linkUsed"},
		{errors.New("connection refused"), http.StatusInternalServerError, "error.internal"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, logger.NewNoOpLogger(), tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}
