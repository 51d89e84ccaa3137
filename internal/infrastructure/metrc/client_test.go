package metrc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/config"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/regulator"
)

var creds = regulator.Credentials{DispensaryID: 7, APIKey: "user-key", License: "LIC-1", State: "OK"}

func newTestClient(t *testing.T, h http.HandlerFunc, sleeps *[]time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.DefaultMetrcConfig()
	cfg.VendorKey = "vendor-key"
	cfg.Endpoints = map[string]string{"OK": srv.URL}

	return NewClient(cfg,
		WithHTTPClient(srv.Client()),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return nil
		}),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_BasicAuthAndLicense(t *testing.T) {
	var gotAuth, gotLicense string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotLicense = r.URL.Query().Get("licenseNumber")
		w.WriteHeader(http.StatusOK)
	}, nil)

	status, err := c.Unfinish(context.Background(), creds, []regulator.UnfinishRequest{{Label: "PKG-1"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("vendor-key:user-key"))
	assert.Equal(t, want, gotAuth)
	assert.Equal(t, "LIC-1", gotLicense)
}

func TestClient_RetriesOnRateLimit(t *testing.T) {
	var calls int32
	var sleeps []time.Duration
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/packages/v2/adjust", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, &sleeps)

	status, err := c.Adjust(context.Background(), creds, []regulator.Adjustment{{Label: "PKG-1"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, nil)

	status, err := c.Finish(context.Background(), creds, []regulator.FinishRequest{{Label: "PKG-1", ActualDate: "2024-01-02"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, int32(10), atomic.LoadInt32(&calls))
}

func TestClient_ListPackagesPaginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/packages/v2/active", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
		page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		writeJSON(w, http.StatusOK, map[string]any{
			"TotalPages": 2,
			"Data": []map[string]any{
				{"Id": page, "Label": "PKG-" + strconv.Itoa(page), "Quantity": 10.5, "UnitOfMeasureName": "Grams"},
			},
		})
	}, nil)

	got := c.ListPackages(context.Background(), creds, regulator.PackagesActive, "1990-01-17T06:30:00Z")

	require.Len(t, got, 2)
	assert.Equal(t, "PKG-1", got[0].Label)
	assert.Equal(t, "PKG-2", got[1].Label)
	assert.True(t, got[0].Quantity.Equal(types.MustMoney("10.5")))
}

func TestClient_ListPackagesDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "non json body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html></html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, nil)
			assert.Empty(t, c.ListPackages(context.Background(), creds, regulator.PackagesInactive, "x"))
		})
	}
}

func TestClient_PostReceipt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sales/v2/receipts", r.URL.Path)
		var body []regulator.Receipt
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) && assert.Len(t, body, 1) {
			assert.Equal(t, "MED-9", body[0].PatientLicenseNumber)
		}
		writeJSON(w, http.StatusOK, map[string]any{"Ids": []int64{4242}})
	}, nil)

	res, err := c.PostReceipt(context.Background(), creds, regulator.Receipt{PatientLicenseNumber: "MED-9"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, int64(4242), res.ID)
}

func TestClient_DeleteReceipt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/sales/v2/receipts/4242", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, nil)

	status, err := c.DeleteReceipt(context.Background(), creds, 4242)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestClient_UnknownState(t *testing.T) {
	c := NewClient(config.DefaultMetrcConfig())
	_, err := c.Adjust(context.Background(), regulator.Credentials{State: "ZZ"}, nil)
	require.Error(t, err)
}
