package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/service"
	"github.com/tribehub/tribehub/backend/content-service/pkg/middleware"
)

func asOperator(c *gin.Context) {
	c.Set(middleware.ActorKey, "ops@tribehub.org")
	c.Next()
}

func newRouter(t *testing.T, protect ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, err := service.NewMemoryService(content.DefaultRegistry())
	require.NoError(t, err)
	r := gin.New()
	NewContentHandler(svc, protect...).Register(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func eventBody(title string, featured bool) map[string]interface{} {
	return map[string]interface{}{
		"event":    map[string]interface{}{"title": title, "date": "2099-06-01", "time": "19:00"},
		"featured": featured,
	}
}

func TestContentCRUD(t *testing.T) {
	r := newRouter(t, asOperator)

	w := do(r, http.MethodPost, "/api/v1/content/events", eventBody("open mic", false))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "event", created["kind"])
	assert.Equal(t, "upcoming", created["bucket"])

	w = do(r, http.MethodGet, "/api/v1/content/event/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ev := decode(t, w)["event"].(map[string]interface{})
	assert.Equal(t, "OPEN MIC", ev["title"])

	w = do(r, http.MethodPut, "/api/v1/content/event/"+id, map[string]interface{}{
		"event": map[string]interface{}{"title": "jam night", "date": "2099-06-01", "time": "20:00"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/content/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = do(r, http.MethodDelete, "/api/v1/content/event/"+id, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/content/event/"+id, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, id, decode(t, w)["id"])
}

func TestContentErrors(t *testing.T) {
	r := newRouter(t, asOperator)

	w := do(r, http.MethodGet, "/api/v1/content/podcasts", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/v1/content/event", map[string]interface{}{
		"event": map[string]interface{}{"date": "2099-06-01", "time": "19:00"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "event.title", decode(t, w)["field"])

	w = do(r, http.MethodGet, "/api/v1/content/event?featured=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/content/event?bucket=someday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/v1/content/event/missing/featured", map[string]interface{}{"featured": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/api/v1/content/event/missing/featured", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeaturedQuotaConflict(t *testing.T) {
	r := newRouter(t, asOperator)

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		w := do(r, http.MethodPost, "/api/v1/content/event", eventBody(title, false))
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, decode(t, w)["id"].(string))
	}
	for _, id := range ids[:2] {
		w := do(r, http.MethodPut, "/api/v1/content/event/"+id+"/featured", map[string]interface{}{"featured": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(r, http.MethodPut, "/api/v1/content/event/"+ids[2]+"/featured", map[string]interface{}{"featured": true})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "upcoming", body["bucket"])
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 2, body["limit"])

	w = do(r, http.MethodPost, "/api/v1/content/event", eventBody("d", true))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, "/api/v1/content/event?featured=true&bucket=upcoming", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])
}

func TestMutationsRequireActor(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/api/v1/content/event", eventBody("anon", false))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "actor", decode(t, w)["field"])
}

func TestProtectRunsOnlyOnMutations(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	r := newRouter(t, deny)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/content/partner", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/v1/content/partner", map[string]interface{}{}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodDelete, "/api/v1/content/partner/x", nil).Code)
}

func TestUploadAsset(t *testing.T) {
	r := newRouter(t, asOperator)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "Summer Poster.PNG")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assets/event", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ref content.AssetRef
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ref))
	assert.Equal(t, "events", ref.Bucket)
	assert.Contains(t, ref.Key, "posters/")

	// the returned ref can be attached to a new item as-is
	w = do(r, http.MethodPost, "/api/v1/content/event", map[string]interface{}{
		"event": map[string]interface{}{"title": "summer", "date": "2099-07-01", "time": "18:00", "poster": ref},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestUploadRequiresFile(t *testing.T) {
	r := newRouter(t, asOperator)
	w := do(r, http.MethodPost, "/api/v1/assets/event", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
