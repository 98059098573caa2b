package crud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/confirm"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/response"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Body {
	t.Helper()
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", Invalid("Client name is required"), http.StatusBadRequest, "Client name is required"},
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, "not found"},
		{"token", confirm.ErrInvalidToken, http.StatusConflict, confirm.ErrInvalidToken.Error()},
		{"unique", &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}, http.StatusConflict, "duplicate key value violates unique constraint"},
		{"raw", errors.New("connection reset"), http.StatusInternalServerError, "connection reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Fail(c, zap.NewNop(), "op", tc.err)
			require.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			require.False(t, body.Success)
			require.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestFail_AggregatedValidation(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Fail(c, zap.NewNop(), "op", &ValidationError{Message: "fix", Fields: map[string]string{"email": "Email is required"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Email is required", decode(t, w).Fields["email"])
}

type row struct {
	ID     string `json:"id"`
	Status bool   `json:"status"`
}

func newLifecycleRouter(rows map[string]*row, published *[]realtime.Change, store confirm.Store) *gin.Engine {
	return newLifecycleRouterWithRemoveErr(rows, published, store, nil)
}

func newLifecycleRouterWithRemoveErr(rows map[string]*row, published *[]realtime.Change, store confirm.Store, removeErr *error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	l := Lifecycle{
		Table:   realtime.TableClients,
		Confirm: store,
		Pub:     realtime.PublisherFunc(func(ch realtime.Change) { *published = append(*published, ch) }),
		Logger:  zap.NewNop(),
	}
	exists := func(_ context.Context, k string) error {
		if _, ok := rows[k]; !ok {
			return ErrNotFound
		}
		return nil
	}
	r := gin.New()
	r.PATCH("/clients/:id/status", l.Toggle(CodeKey, func(_ context.Context, k string) (interface{}, error) {
		if err := exists(context.Background(), k); err != nil {
			return nil, err
		}
		rows[k].Status = !rows[k].Status
		cp := *rows[k]
		return cp, nil
	}))
	r.POST("/clients/:id/delete-request", l.RequestDelete(CodeKey, exists))
	r.DELETE("/clients/:id", l.Delete(CodeKey, func(_ context.Context, k string) error {
		if err := exists(context.Background(), k); err != nil {
			return err
		}
		if removeErr != nil && *removeErr != nil {
			return *removeErr
		}
		delete(rows, k)
		return nil
	}))
	r.DELETE("/confirmations/:token", CancelDelete(store, zap.NewNop()))
	return r
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestToggleTwiceRestores(t *testing.T) {
	rows := map[string]*row{"CL001": {ID: "CL001", Status: true}}
	var published []realtime.Change
	r := newLifecycleRouter(rows, &published, confirm.NewMemoryStore(time.Minute))

	require.Equal(t, http.StatusOK, do(r, http.MethodPatch, "/clients/CL001/status").Code)
	require.False(t, rows["CL001"].Status)
	require.Equal(t, http.StatusOK, do(r, http.MethodPatch, "/clients/CL001/status").Code)
	require.True(t, rows["CL001"].Status)

	require.Len(t, published, 2)
	require.Equal(t, realtime.Update, published[0].Type)
	require.Equal(t, "CL001", published[0].Key)
}

func TestTwoStepDeleteRemovesExactlyOneRow(t *testing.T) {
	rows := map[string]*row{"CL001": {ID: "CL001"}, "CL002": {ID: "CL002"}}
	var published []realtime.Change
	r := newLifecycleRouter(rows, &published, confirm.NewMemoryStore(time.Minute))

	require.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/clients/CL001").Code)
	require.Len(t, rows, 2)

	w := do(r, http.MethodPost, "/clients/CL001/delete-request")
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		Data confirm.Pending `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/clients/CL002?confirm="+body.Data.Token).Code)
	require.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/clients/CL001?confirm="+body.Data.Token).Code)

	require.NotContains(t, rows, "CL001")
	require.Contains(t, rows, "CL002")
	require.Equal(t, []realtime.Change{{Table: realtime.TableClients, Type: realtime.Delete, Key: "CL001"}}, published)
}

func TestCancelledDeleteKeepsRow(t *testing.T) {
	rows := map[string]*row{"CL001": {ID: "CL001"}}
	var published []realtime.Change
	r := newLifecycleRouter(rows, &published, confirm.NewMemoryStore(time.Minute))

	w := do(r, http.MethodPost, "/clients/CL001/delete-request")
	var body struct {
		Data confirm.Pending `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/confirmations/"+body.Data.Token).Code)
	require.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/clients/CL001?confirm="+body.Data.Token).Code)
	require.Contains(t, rows, "CL001")
}

func TestRequestDeleteMissingRow(t *testing.T) {
	var published []realtime.Change
	r := newLifecycleRouter(map[string]*row{}, &published, confirm.NewMemoryStore(time.Minute))
	require.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/clients/CL404/delete-request").Code)
}

func TestRejectedDeleteKeepsToken(t *testing.T) {
	rows := map[string]*row{"EMP001": {ID: "EMP001"}}
	var published []realtime.Change
	var removeErr error = &pgconn.PgError{Code: "23503", Message: "update or delete on table \"employees\" violates foreign key constraint"}
	r := newLifecycleRouterWithRemoveErr(rows, &published, confirm.NewMemoryStore(time.Minute), &removeErr)

	w := do(r, http.MethodPost, "/clients/EMP001/delete-request")
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		Data confirm.Pending `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/clients/EMP001?confirm="+body.Data.Token).Code)
	require.Contains(t, rows, "EMP001")
	require.Empty(t, published)

	removeErr = nil
	require.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/clients/EMP001?confirm="+body.Data.Token).Code)
	require.NotContains(t, rows, "EMP001")
	require.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/clients/EMP001?confirm="+body.Data.Token).Code)
}
