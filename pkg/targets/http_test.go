package targets

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	svc, _ := newService(t)
	router := mux.NewRouter()
	h := NewHTTPHandler(svc)
	h.RegisterAdmin(router)
	h.RegisterPublic(router)
	return router
}

func do(router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func TestAdminTargetsCRUD(t *testing.T) {
	router := newRouter(t)

	rec := do(router, http.MethodPost, "/admin/targets", map[string]string{
		"name": "Jane Doe", "linkedin_url": "https://linkedin.com/in/jane", "team": "BDR",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Target Target `json:"target"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(router, http.MethodPost, "/admin/targets", map[string]string{
		"name": "Jane Copy", "linkedin_url": "https://linkedin.com/in/jane/", "team": "BDR",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPut, "/admin/targets", map[string]interface{}{
		"id": created.Target.ID.String(), "name": "Jane D.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Jane D."`)

	rec = do(router, http.MethodPut, "/admin/targets", map[string]interface{}{"name": "No Id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/admin/targets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Targets []Target `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Targets, 1)

	rec = do(router, http.MethodDelete, "/admin/targets?id="+created.Target.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(router, http.MethodDelete, "/admin/targets?id="+created.Target.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(router, http.MethodDelete, "/admin/targets", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateValidationDetails(t *testing.T) {
	router := newRouter(t)

	rec := do(router, http.MethodPost, "/admin/targets", map[string]string{
		"name": "Jane", "linkedin_url": "not a url", "team": "BDR",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error   string              `json:"error"`
		Details map[string][]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Error)
	assert.Contains(t, body.Details, "linkedin_url")
}

func TestTeamsEndpoint(t *testing.T) {
	router := newRouter(t)
	rec := do(router, http.MethodGet, "/teams", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"Sales_Enterprise"`)
	assert.Contains(t, rec.Body.String(), `"label":"Sales Enterprise"`)
}
