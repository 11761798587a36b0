package headermapper

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gatewayEvent = `{
  "resource": "/orders/{id}",
  "path": "/orders/42",
  "httpMethod": "POST",
  "headers": {
    "content-type": "application/json",
    "Accept": "text/html,application/json",
    "X-Null": null,
    "Host": "api.example.com"
  },
  "queryStringParameters": {"expand": "items", "dropped": null},
  "pathParameters": {"id": "42"},
  "requestContext": {
    "accountId": "123456789012",
    "stage": "prod",
    "requestId": "req-1",
    "identity": {"sourceIp": "203.0.113.9"},
    "resourcePath": "/orders/{id}",
    "httpMethod": "POST",
    "apiId": "abc",
    "authorizer": {"principalId": "user-1"}
  },
  "body": "{\"qty\":1}",
  "isBase64Encoded": false
}`

func decodeEvent(t *testing.T, raw string) *GatewayRequest {
	t.Helper()
	var req GatewayRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	return &req
}

func TestNewHTTPRequest(t *testing.T) {
	req, err := NewHTTPRequest(context.Background(), decodeEvent(t, gatewayEvent))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/orders/42", req.URL.Path)
	assert.Equal(t, "expand=items", req.URL.RawQuery)
	assert.Equal(t, "/orders/42?expand=items", req.RequestURI)
	assert.Equal(t, "api.example.com", req.Host)
	assert.Equal(t, "203.0.113.9", req.RemoteAddr)

	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, []string{"text/html,application/json"}, req.Header.Values("Accept"))
	_, hasNull := req.Header["X-Null"]
	assert.False(t, hasNull)

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"qty":1}`, string(body))
	assert.Equal(t, int64(len(body)), req.ContentLength)

	rc, ok := RequestContextFrom(req.Context())
	require.True(t, ok)
	assert.Equal(t, "req-1", rc.RequestID)
	assert.Equal(t, "prod", rc.Stage)
	assert.Equal(t, "user-1", rc.Authorizer["principalId"])
}

func TestNewHTTPRequest_PathKeptVerbatim(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		requestURI string
	}{
		{name: "leading double slash", path: "//a/b", requestURI: "//a/b"},
		{name: "host-like double slash", path: "//evil.com/x", requestURI: "//evil.com/x"},
		{name: "colon in first segment", path: "a:b", requestURI: "a:b"},
		{name: "plain", path: "/orders/42", requestURI: "/orders/42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewHTTPRequest(context.Background(), &GatewayRequest{Path: tt.path})
			require.NoError(t, err)
			assert.Equal(t, tt.path, req.URL.Path)
			assert.Empty(t, req.URL.Host)
			assert.Empty(t, req.Host)
			assert.Equal(t, tt.requestURI, req.RequestURI)
		})
	}
}

func TestNewHTTPRequest_Defaults(t *testing.T) {
	req, err := NewHTTPRequest(context.Background(), &GatewayRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/", req.URL.Path)
	assert.Empty(t, req.Header)
}

func TestNewHTTPRequest_MergesFoldedNames(t *testing.T) {
	a, b := "1", "2"
	req, err := NewHTTPRequest(context.Background(), &GatewayRequest{
		Headers: map[string]*string{"X-Id": &a, "x-id": &b},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, req.Header.Values("X-Id"))
}

func TestNewHTTPRequest_Errors(t *testing.T) {
	_, err := NewHTTPRequest(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilRequest)

	body := "not base64!"
	_, err = NewHTTPRequest(context.Background(), &GatewayRequest{Body: &body, IsBase64Encoded: true})
	assert.ErrorContains(t, err, "failed to decode request body")

	_, err = NewHTTPRequest(context.Background(), &GatewayRequest{HTTPMethod: "BAD METHOD"})
	assert.ErrorContains(t, err, "failed to create http request")
}

func TestNewHTTPRequest_Base64Body(t *testing.T) {
	body := base64.StdEncoding.EncodeToString([]byte{0xff, 0x00, 0x01})
	req, err := NewHTTPRequest(context.Background(), &GatewayRequest{Body: &body, IsBase64Encoded: true})
	require.NoError(t, err)

	got, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00, 0x01}, got)
}

func TestAdapter_Serve(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.Header().Set("Content-Length", "7")
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Accept", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusCreated)
		w.Header().Set("X-Too-Late", "ignored")
		_, _ = io.WriteString(w, "created")
	})

	metrics := NewMetrics()
	adapter := NewAdapter(WithMetrics(metrics), WithLogger(&testLogger{}))
	resp, err := adapter.Serve(context.Background(), handler, decodeEvent(t, gatewayEvent))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "created", resp.Body)
	assert.False(t, resp.IsBase64Encoded)
	assert.Equal(t, map[string]string{
		"Set-Cookie":   "a=1,b=2",
		"Content-Type": "text/plain",
		"X-Accept":     "text/html,application/json",
	}, resp.Headers)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.headersTotal.WithLabelValues(DirectionFlatten, OutcomeDropped)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.headersTotal.WithLabelValues(DirectionFlatten, OutcomeKept)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.headersTotal.WithLabelValues(DirectionExpand, OutcomeKept)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.headersTotal.WithLabelValues(DirectionExpand, OutcomeDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("gateway")))
}

func TestAdapter_Serve_ResponseFilter(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "internal")
		w.Header().Set("Content-Length", "0")
	})

	adapter := NewAdapter(WithResponseFilter(Exclude("Server")))
	resp, err := adapter.Serve(context.Background(), handler, &GatewayRequest{})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"Content-Length": "0"}, resp.Headers)
	assert.Equal(t, "", resp.Body)
}

func TestAdapter_Serve_DetectsContentTypeAndBinaryBody(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(png)
	})

	resp, err := NewAdapter().Serve(context.Background(), handler, &GatewayRequest{})
	require.NoError(t, err)

	assert.Equal(t, "image/png", resp.Headers["Content-Type"])
	assert.True(t, resp.IsBase64Encoded)
	decoded, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, png, decoded)
}

func TestAdapter_Serve_InformationalStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", "</style.css>; rel=preload")
		w.WriteHeader(http.StatusEarlyHints)
		w.Header().Set("X-Final", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "done")
	})

	resp, err := NewAdapter().Serve(context.Background(), handler, &GatewayRequest{})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "done", resp.Body)
	assert.Equal(t, "yes", resp.Headers["X-Final"])
	assert.Equal(t, "</style.css>; rel=preload", resp.Headers["Link"])
}

func TestAdapter_Serve_ExpandMetricsCountNullHeaders(t *testing.T) {
	value := "v"
	metrics := NewMetrics()
	adapter := NewAdapter(WithMetrics(metrics))
	_, err := adapter.Serve(context.Background(), http.NotFoundHandler(), &GatewayRequest{
		Headers: map[string]*string{"A": &value, "B": nil, "": &value},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.headersTotal.WithLabelValues(DirectionExpand, OutcomeKept)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.headersTotal.WithLabelValues(DirectionExpand, OutcomeDropped)))
}

func TestAdapter_Serve_NilRequest(t *testing.T) {
	_, err := NewAdapter().Serve(context.Background(), http.NotFoundHandler(), nil)
	assert.ErrorIs(t, err, ErrNilRequest)
}

func TestGatewayResponse_JSON(t *testing.T) {
	resp := &GatewayResponse{StatusCode: 200, Headers: map[string]string{"A": "1"}, Body: "ok"}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"headers":{"A":"1"},"body":"ok","isBase64Encoded":false}`, string(data))
}
