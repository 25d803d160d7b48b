package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httperr "github.com/aevon-lab/tenantflow/internal/core/errors"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHandle_WaitWithBackgroundScheduler(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.scheduler.Start(ctx)
	}()

	handle, err := h.service.Start(context.Background(), acmeParams())
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	res, err := handle.Wait(waitCtx)
	require.NoError(t, err)

	assert.Equal(t, string(workflow.StatusCompleted), res.Status)
	assert.True(t, res.DNSConfigured)
	assert.Equal(t, 2, res.InvitationsSent)
	assert.Empty(t, res.Errors)

	cancel()
	<-done
}

func TestRunHandle_WaitHonoursContext(t *testing.T) {
	h := newHarness(t)
	handle, err := h.service.Start(context.Background(), acmeParams())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := handle.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, string(workflow.StatusRunning), res.Status)
}

func TestService_StartRejectsInvalidParams(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.Start(context.Background(), workflow.Params{Subdomain: "acme"})
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestProvisioningAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newHarness(t)
	r := gin.New()
	h.service.RegisterRoutes(r)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp
	}

	resp := do(http.MethodPost, "/v1/provisioning", acmeParams())
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	var started struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &started))
	require.NotEmpty(t, started.RunID)

	h.scheduler.Tick(context.Background())

	resp = do(http.MethodGet, "/v1/provisioning/"+started.RunID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var res Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	assert.Equal(t, string(workflow.StatusCompleted), res.Status)
	assert.Equal(t, 2, res.InvitationsSent)

	resp = do(http.MethodPost, "/v1/provisioning/"+started.RunID+"/cancel", nil)
	require.Equal(t, http.StatusAccepted, resp.Code)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantType   string
	}{
		{"missing name", http.MethodPost, "/v1/provisioning", map[string]interface{}{"subdomain": "x"}, http.StatusBadRequest, httperr.HttpInvalidParamsError},
		{"bad subdomain", http.MethodPost, "/v1/provisioning", map[string]interface{}{"organization_name": "X", "subdomain": "-bad-"}, http.StatusBadRequest, httperr.HttpInvalidParamsError},
		{"unknown run", http.MethodGet, "/v1/provisioning/nope", nil, http.StatusNotFound, httperr.HttpNotFoundError},
		{"cancel unknown run", http.MethodPost, "/v1/provisioning/nope/cancel", nil, http.StatusNotFound, httperr.HttpNotFoundError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(tc.method, tc.path, tc.body)
			require.Equal(t, tc.wantStatus, resp.Code)
			var body httperr.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tc.wantType, body.ErrorType)
		})
	}
}
