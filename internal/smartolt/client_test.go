package smartolt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "secret-token"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/", Token: testToken, Timeout: 2 * time.Second}, logger.Discard())
	require.NoError(t, err)
	return client
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Token: "x"}, logger.Discard())
	assert.ErrorIs(t, err, ErrEmptyBaseURL)

	_, err = New(Config{BaseURL: "http://olt.example"}, logger.Discard())
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestFetchOnuDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathOnuDetails, r.URL.Path)
		assert.Equal(t, testToken, r.Header.Get(TokenHeader))
		assert.Equal(t, "7", r.URL.Query().Get("olt_id"))
		assert.Equal(t, "North", r.URL.Query().Get("zone"))
		assert.False(t, r.URL.Query().Has("board"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"onus":[
			{"unique_external_id":"HWTC01","sn":"HWTC01","name":"Maria","olt_id":7,"board":"1","port":2,
			 "odb_name":"B1","zone_name":"North","status":"Online","latitude":"-7.1","longitude":110.8},
			{"unique_external_id":42,"name":"Joao","status":"LOS","latitude":null}
		]}`))
	})

	onus, err := client.FetchOnuDetails(context.Background(), domain.Filters{OLTID: "7", Zone: " North "})
	require.NoError(t, err)
	require.Len(t, onus, 2)

	assert.Equal(t, "HWTC01", onus[0].UniqueExternalID.String())
	assert.Equal(t, "7", onus[0].OLTID.String())
	assert.Equal(t, "2", onus[0].Port.String())
	assert.Equal(t, "-7.1", onus[0].Latitude.String())
	assert.Equal(t, "110.8", onus[0].Longitude.String())
	assert.Equal(t, "42", onus[1].UniqueExternalID.String())
	assert.Empty(t, onus[1].Latitude.String())
}

func TestFetchOnuStatusesAndOLTs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathOnuStatuses:
			_, _ = w.Write([]byte(`{"status":true,"response":[{"unique_external_id":"A","status":"Power fail","last_down_cause":"dying-gasp"}]}`))
		case pathOLTs:
			_, _ = w.Write([]byte(`{"status":true,"response":[{"id":1,"name":"OLT-Centro","ip":"10.0.0.1"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	statuses, err := client.FetchOnuStatuses(context.Background(), domain.Filters{})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "Power fail", statuses[0].Status)
	assert.Equal(t, "dying-gasp", statuses[0].LastDownCause)

	olts, err := client.FetchOLTs(context.Background())
	require.NoError(t, err)
	require.Len(t, olts, 1)
	assert.Equal(t, "1", olts[0].ID.String())
	assert.Equal(t, "OLT-Centro", olts[0].Name)
}

func TestFetchOnuDetailAndSignal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathOnuDetail + "HWTC01":
			_, _ = w.Write([]byte(`{"status":true,"onu_details":{"sn":"HWTC01","name":"Maria","status":"Online"}}`))
		case pathOnuSignal + "HWTC01":
			_, _ = w.Write([]byte(`{"status":true,"onu_signal":"Very good","onu_signal_value":"-19.5 dBm","onu_signal_1490":"-19.5"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":false,"error":"ONU not found"}`))
		}
	})
	ctx := context.Background()

	detail, err := client.FetchOnuDetail(ctx, "HWTC01")
	require.NoError(t, err)
	assert.Equal(t, "HWTC01", detail.UniqueExternalID.String())
	assert.Equal(t, "Maria", detail.Name)

	signal, err := client.FetchOnuSignal(ctx, "HWTC01")
	require.NoError(t, err)
	assert.Equal(t, "Very good", signal.Signal)
	assert.Equal(t, "-19.5 dBm", signal.SignalValue)

	_, err = client.FetchOnuDetail(ctx, "nope")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamApplication, domain.KindOf(err))
	assert.Contains(t, err.Error(), "ONU not found")

	_, err = client.FetchOnuDetail(ctx, " ")
	assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
}

func TestApplicationFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.ErrorKind
	}{
		{
			name:     "status false envelope",
			status:   http.StatusOK,
			body:     `{"status":false,"error":"Invalid OLT id"}`,
			wantKind: domain.KindUpstreamApplication,
		},
		{
			name:     "credential shaped message",
			status:   http.StatusOK,
			body:     `{"status":false,"error":"Invalid API key"}`,
			wantKind: domain.KindUpstreamCredentials,
		},
		{
			name:     "token message on 400",
			status:   http.StatusBadRequest,
			body:     `{"status":false,"error":"X-Token missing or expired"}`,
			wantKind: domain.KindUpstreamCredentials,
		},
		{
			name:     "forbidden without envelope",
			status:   http.StatusForbidden,
			body:     `<html>denied</html>`,
			wantKind: domain.KindUpstreamCredentials,
		},
		{
			name:     "hourly limit reported by upstream",
			status:   http.StatusTooManyRequests,
			body:     `{"status":false,"error":"Hourly limit reached"}`,
			wantKind: domain.KindUpstreamApplication,
		},
		{
			name:     "html error page",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantKind: domain.KindUpstreamTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			onus, err := client.FetchOnuDetails(context.Background(), domain.Filters{})
			require.Error(t, err)
			assert.Nil(t, onus)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}
}

func TestTransportTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, Token: testToken, Timeout: 50 * time.Millisecond}, logger.Discard())
	require.NoError(t, err)

	_, err = client.FetchOLTs(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamTransport, domain.KindOf(err))
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})
	ctx := context.Background()

	for i := 0; i < breakerTripAfter; i++ {
		_, err := client.FetchOLTs(ctx)
		require.Equal(t, domain.KindUpstreamTransport, domain.KindOf(err))
	}

	_, err := client.FetchOLTs(ctx)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	assert.Equal(t, int32(breakerTripAfter), hits.Load())
}

func TestBreakerIgnoresApplicationFailures(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"status":false,"error":"Invalid filter"}`))
	})

	for i := 0; i < breakerTripAfter+2; i++ {
		_, err := client.FetchOLTs(context.Background())
		require.Equal(t, domain.KindUpstreamApplication, domain.KindOf(err))
	}
	assert.Equal(t, int32(breakerTripAfter+2), hits.Load())
}

func TestIsCredentialMessage(t *testing.T) {
	assert.True(t, isCredentialMessage("Invalid token"))
	assert.True(t, isCredentialMessage("API KEY revoked"))
	assert.True(t, isCredentialMessage("Unauthorized"))
	assert.False(t, isCredentialMessage("ONU not found"))
	assert.False(t, isCredentialMessage(""))
}
