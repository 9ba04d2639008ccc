package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/upload"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

type testServer struct {
	echo     *echo.Echo
	auth     *MockAuthService
	products *MockProductService
	store    *upload.Store
	hook     *test.Hook
	admin    *model.UserView
	user     *model.UserView
}

// envelope is the decoded body of any API reply.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger, hook := test.NewNullLogger()
	store, err := upload.NewStore(t.TempDir(), 5<<20, 0, logger)
	require.NoError(t, err)

	s := &testServer{
		echo:     echo.New(),
		auth:     new(MockAuthService),
		products: new(MockProductService),
		store:    store,
		hook:     hook,
		admin:    &model.UserView{ID: uuid.New(), Username: "admin", Email: "admin@example.com", Role: model.RoleAdmin},
		user:     &model.UserView{ID: uuid.New(), Username: "jane", Email: "jane@example.com", Role: model.RoleUser},
	}
	s.authorize(adminToken, s.admin)
	s.authorize(userToken, s.user)

	e := s.echo
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(logger)

	authn := middleware.NewAuthenticator(s.auth, logger)
	authHandler := NewAuthHandler(s.auth)
	productHandler := NewProductHandler(s.products, store, logger)

	api := e.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/verify", authHandler.Verify, authn.Authenticate)
	api.GET("/auth/profile", authHandler.GetProfile, authn.Authenticate)
	api.PUT("/auth/profile", authHandler.UpdateProfile, authn.Authenticate)
	api.POST("/auth/logout", authHandler.Logout, authn.Authenticate)

	admin := []echo.MiddlewareFunc{authn.Authenticate, middleware.RequireAdmin(), productHandler.LimitBody()}
	api.GET("/products", productHandler.ListProducts)
	api.GET("/products/:id", productHandler.GetProduct)
	api.POST("/products", productHandler.CreateProduct, admin...)
	api.PUT("/products/:id", productHandler.UpdateProduct, admin...)
	api.DELETE("/products/:id", productHandler.DeleteProduct, admin...)

	return s
}

func (s *testServer) authorize(token string, user *model.UserView) {
	claims := &auth.Claims{UserID: user.ID, Role: user.Role}
	claims.ID = uuid.NewString()
	s.auth.On("VerifyToken", mock.Anything, token).Return(claims, nil).Maybe()
	s.auth.On("GetProfile", mock.Anything, user.ID).Return(user, nil).Maybe()
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req, token)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// formFile describes one file part of a multipart request.
type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="`+file.name+`"`)
		header.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
