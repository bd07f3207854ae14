package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"image-service/internal/auth"
	"image-service/internal/catalog"
	"image-service/internal/handler"
	"image-service/internal/models"
	"image-service/internal/service"
	"image-service/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type memImages struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.Image
	seq     int
}

func (m *memImages) Insert(_ context.Context, img *models.Image) (*models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	created := *img
	created.CreatedAt = time.Unix(0, 0).Add(time.Duration(m.seq) * time.Second)
	m.records[created.ID] = created
	return &created, nil
}

func (m *memImages) GetByID(_ context.Context, id uuid.UUID) (*models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memImages) ListByOwner(_ context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []models.Image
	for _, rec := range m.records {
		if rec.OwnerID == ownerID {
			owned = append(owned, rec)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if offset >= len(owned) {
		return nil, nil
	}
	owned = owned[offset:]
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (m *memImages) Delete(_ context.Context, id, ownerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.OwnerID != ownerID {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

type memUsers struct {
	mu     sync.Mutex
	byName map[string]models.User
}

func (m *memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[user.Username]; ok {
		return nil, catalog.ErrDuplicate
	}
	created := *user
	created.CreatedAt = time.Now()
	m.byName[user.Username] = created
	return &created, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	imagesSvc := service.NewImageService(
		&memStore{objects: make(map[string][]byte)},
		&memImages{records: make(map[uuid.UUID]models.Image)},
		nil, 100, log)
	usersSvc := service.NewUserService(&memUsers{byName: make(map[string]models.User)}, log)

	issuer := auth.NewIssuer("test-secret", time.Hour)
	h := handler.New(imagesSvc, usersSvc, issuer, nil, 10<<20, log)

	r := gin.New()
	h.Routes(r, auth.Middleware(auth.NewSecretVerifier("test-secret")))
	return r
}

func registerUser(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "correct horse battery"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 64, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func uploadImage(t *testing.T, r *gin.Engine, token string, filename string, data []byte) models.Image {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Image
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	return created
}

func authedRequest(token, method, path string, body []byte) *http.Request {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestImageLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	tokenA := registerUser(t, r, "alice")
	tokenB := registerUser(t, r, "bob")

	input := pngBytes(t, 120, 90)
	created := uploadImage(t, r, tokenA, "cat.png", input)
	require.Equal(t, "cat.png", created.OriginalName)
	require.Equal(t, int64(len(input)), created.SizeBytes)
	require.Equal(t, "image/png", created.MimeType)

	// Fetch as owner returns the exact original bytes.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(tokenA, http.MethodGet, "/api/images/"+created.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, input, w.Body.Bytes())
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))

	// Fetch as another user is denied.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(tokenB, http.MethodGet, "/api/images/"+created.ID.String(), nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	// Transform to 50x50 JPEG.
	spec, _ := json.Marshal(map[string]any{"resize": map[string]int{"width": 50, "height": 50}})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(tokenA, http.MethodPost, "/api/images/"+created.ID.String()+"/transform", spec))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	out, err := imaging.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 50, out.Bounds().Dx())
	require.Equal(t, 50, out.Bounds().Dy())

	// Delete as owner, then the image is gone.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(tokenA, http.MethodDelete, "/api/images/"+created.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"deleted": true}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(tokenA, http.MethodGet, "/api/images/"+created.ID.String(), nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListImagesOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	tokenA := registerUser(t, r, "alice")
	tokenB := registerUser(t, r, "bob")

	for i := 0; i < 3; i++ {
		uploadImage(t, r, tokenA, "a.png", pngBytes(t, 10, 10))
	}
	uploadImage(t, r, tokenB, "b.png", pngBytes(t, 10, 10))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(tokenA, http.MethodGet, "/api/images?page=1&limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Images []models.Image `json:"images"`
		Total  int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Total)
	for _, img := range resp.Images {
		require.Equal(t, "a.png", img.OriginalName)
	}
}

func TestTransformBadSpecOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	token := registerUser(t, r, "alice")
	created := uploadImage(t, r, token, "cat.png", pngBytes(t, 20, 20))

	spec, _ := json.Marshal(map[string]any{"format": "bmp"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(token, http.MethodPost, "/api/images/"+created.ID.String()+"/transform", spec))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImageRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	registerUser(t, r, "alice")

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct horse battery"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginWrongPasswordOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	registerUser(t, r, "alice")

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong password!!"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
