package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/require"

	"github.com/Danielfrancoi/matrices/internal/matmul"
)

func newTestEcho() (*echo.Echo, *ResultStore) {
	store := NewResultStore()
	server := NewServer(store, Config{Strategy: "threads", Workers: 2, MaxSize: 16})
	e := echo.New()
	server.Register(e)
	return e, store
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type intResult struct {
	MultiplyResponse
	C [][]int64 `json:"c"`
}

func TestMultiplyGetDeleteLifecycle(t *testing.T) {
	t.Parallel()

	e, store := newTestEcho()
	createRec := doJSON(t, e, http.MethodPost, "/v1/multiply", `{"a":[[1,2],[3,4]],"b":[[5,6],[7,8]]}`)
	if createRec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", createRec.Code, createRec.Body.String())
	}

	var created intResult
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if !strings.HasPrefix(created.ID, "mul_") {
		t.Fatalf("unexpected result id %q", created.ID)
	}
	require.Equal(t, [][]int64{{19, 22}, {43, 50}}, created.C)
	require.Equal(t, "threads", created.Strategy)
	require.Equal(t, "i64", created.DType)
	require.Equal(t, 2, created.Workers)
	require.Equal(t, 1, store.Len())

	getRec := doJSON(t, e, http.MethodGet, "/v1/results/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/results/"+created.ID, "")
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", delRec.Body.String())
	}

	getDeletedRec := doJSON(t, e, http.MethodGet, "/v1/results/"+created.ID, "")
	if getDeletedRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%s", getDeletedRec.Code, getDeletedRec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodDelete, "/v1/results/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestMultiplyEveryInProcessStrategy(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho()
	for _, name := range []string{"sequential", "threads", "loop", "distributed"} {
		body := `{"strategy":"` + name + `","dtype":"f64","workers":2,"a":[[1.5,0],[0,1]],"b":[[2,0],[0,3]]}`
		rec := doJSON(t, e, http.MethodPost, "/v1/multiply", body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", name, rec.Body.String())
		var got struct {
			Strategy string      `json:"strategy"`
			C        [][]float64 `json:"c"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, name, got.Strategy)
		require.Equal(t, [][]float64{{3, 0}, {0, 3}}, got.C)
	}
}

func TestMultiplyRandomOperands(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho()
	body := `{"strategy":"loop","dtype":"i32","size":5,"seed":9,"options":{"chunk":2}}`
	first := doJSON(t, e, http.MethodPost, "/v1/multiply", body)
	second := doJSON(t, e, http.MethodPost, "/v1/multiply", body)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	var r1, r2 struct {
		Size    int       `json:"size"`
		Workers int       `json:"workers"`
		C       [][]int32 `json:"c"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &r1))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &r2))
	require.Equal(t, 5, r1.Size)
	require.Equal(t, 2, r1.Workers)
	require.Len(t, r1.C, 5)
	require.Equal(t, r1.C, r2.C, "same seed must give the same product")
}

func TestMultiplyValidationErrors(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho()
	cases := map[string]struct {
		body string
		want string
	}{
		"too many workers": {`{"workers":3,"a":[[1,2],[3,4]],"b":[[5,6],[7,8]]}`, "3 workers for 2 rows"},
		"ragged rows":      {`{"a":[[1,2],[3]],"b":[[5,6],[7,8]]}`, "a:"},
		"dim mismatch":     {`{"a":[[1]],"b":[[5,6],[7,8]]}`, "dimension mismatch"},
		"only a":           {`{"a":[[1]]}`, "sent together"},
		"fraction in ints": {`{"dtype":"i32","a":[[1.5]],"b":[[1]]}`, "a[0][0]"},
		"int32 overflow":   {`{"dtype":"i32","a":[[4294967296]],"b":[[1]]}`, "overflows"},
		"unknown strategy": {`{"strategy":"gpu","size":2}`, "unknown strategy"},
		"unknown dtype":    {`{"dtype":"c128","size":2}`, "unknown dtype"},
		"too large":        {`{"size":17}`, "size must be in"},
		"unknown field":    {`{"size":2,"rows":3}`, "invalid JSON body"},
		"bad launcher":     {`{"strategy":"distributed","size":2,"options":{"launcher":"ssh"}}`, "unknown launcher"},
	}
	for name, tc := range cases {
		rec := doJSON(t, e, http.MethodPost, "/v1/multiply", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body=%s", name, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s: unexpected error body: %s", name, rec.Body.String())
		}
	}
}

func TestListStrategies(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho()
	rec := doJSON(t, e, http.MethodGet, "/v1/strategies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list StrategyList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, "list", list.Object)
	names := make([]string, 0, len(list.Data))
	for _, s := range list.Data {
		names = append(names, s.Name)
	}
	require.Equal(t, matmul.Names(), names)
}
