package user

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	myMiddleware "buachat/internal/middleware"
	"buachat/internal/upload"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *memStore) {
	t.Helper()
	s, store := newTestService(time.Hour)
	avatars, err := upload.NewStorage(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)
	return NewHandler(s, avatars, zap.NewNop()), store
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRegisterHandler(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postJSON(t, h.Register, `{"username":"bob","password":"pw123"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	rr = postJSON(t, h.Register, `{"username":"bob","password":"anything"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = postJSON(t, h.Register, `{"username":"","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = postJSON(t, h.Register, `{"username":"carol","password":"`+strings.Repeat("x", 73)+`"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "password is longer than 72 bytes")

	rr = postJSON(t, h.Register, `{"username":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Malformed JSON\n", rr.Body.String())
}

func TestLoginHandler(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusCreated, postJSON(t, h.Register, `{"username":"bob","password":"pw123"}`).Code)

	rr := postJSON(t, h.Login, `{"username":"bob","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = postJSON(t, h.Login, `{"username":"bob","password":"pw123"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var res LoginResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	require.NotEmpty(t, res.Token)
	require.Equal(t, "bob", res.Username)
	require.Nil(t, res.AvatarURL)
}

func TestLoginHandlerStoreDown(t *testing.T) {
	h, store := newTestHandler(t)
	store.failure = errStoreDown

	rr := postJSON(t, h.Login, `{"username":"bob","password":"pw123"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestUploadAvatarHandler(t *testing.T) {
	h, store := newTestHandler(t)
	reg, err := h.Service.Register(context.Background(), &RegisterRequest{Username: "bob", Password: "pw123"})
	require.NoError(t, err)

	newReq := func(contentType string) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="avatar"; filename="me.gif"`},
			"Content-Type":        {contentType},
		})
		require.NoError(t, err)
		_, err = part.Write([]byte("GIF89a"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req.WithContext(myMiddleware.WithUser(req.Context(), reg.ID, "bob"))
	}

	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, newReq("text/plain"))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.UploadAvatar(rr, newReq("image/gif"))
	require.Equal(t, http.StatusOK, rr.Code)

	var res AvatarResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))

	u, err := store.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, u.AvatarURL)
	require.Equal(t, res.AvatarURL, *u.AvatarURL)
}

func TestUploadAvatarRequiresIdentity(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	h.UploadAvatar(rr, httptest.NewRequest(http.MethodPost, "/api/profile/avatar", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
