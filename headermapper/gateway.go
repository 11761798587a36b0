package headermapper

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// ErrNilRequest is returned when a nil gateway request is adapted
var ErrNilRequest = errors.New("gateway request is nil")

// GatewayIdentity describes the caller as reported by the gateway
type GatewayIdentity struct {
	CognitoIdentityPoolID         string `json:"cognitoIdentityPoolId,omitempty"`
	AccountID                     string `json:"accountId,omitempty"`
	CognitoIdentityID             string `json:"cognitoIdentityId,omitempty"`
	Caller                        string `json:"caller,omitempty"`
	APIKey                        string `json:"apiKey,omitempty"`
	SourceIP                      string `json:"sourceIp,omitempty"`
	CognitoAuthenticationType     string `json:"cognitoAuthenticationType,omitempty"`
	CognitoAuthenticationProvider string `json:"cognitoAuthenticationProvider,omitempty"`
	UserArn                       string `json:"userArn,omitempty"`
	UserAgent                     string `json:"userAgent,omitempty"`
	User                          string `json:"user,omitempty"`
}

// GatewayRequestContext carries gateway metadata about a request
type GatewayRequestContext struct {
	AccountID    string                 `json:"accountId,omitempty"`
	ResourceID   string                 `json:"resourceId,omitempty"`
	Stage        string                 `json:"stage,omitempty"`
	RequestID    string                 `json:"requestId,omitempty"`
	Identity     GatewayIdentity        `json:"identity"`
	ResourcePath string                 `json:"resourcePath,omitempty"`
	HTTPMethod   string                 `json:"httpMethod,omitempty"`
	APIID        string                 `json:"apiId,omitempty"`
	Authorizer   map[string]interface{} `json:"authorizer,omitempty"`
}

// GatewayRequest is a proxy-integration request. Headers and query
// parameters are flat; null values decode to nil pointers.
type GatewayRequest struct {
	Resource              string                `json:"resource,omitempty"`
	Path                  string                `json:"path"`
	HTTPMethod            string                `json:"httpMethod"`
	Headers               map[string]*string    `json:"headers,omitempty"`
	QueryStringParameters map[string]*string    `json:"queryStringParameters,omitempty"`
	PathParameters        map[string]string     `json:"pathParameters,omitempty"`
	StageVariables        map[string]string     `json:"stageVariables,omitempty"`
	RequestContext        GatewayRequestContext `json:"requestContext"`
	Body                  *string               `json:"body,omitempty"`
	IsBase64Encoded       bool                  `json:"isBase64Encoded"`
}

// GatewayResponse is a proxy-integration response
type GatewayResponse struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

type requestContextKey struct{}

// RequestContextFrom returns the gateway request context attached by
// NewHTTPRequest.
func RequestContextFrom(ctx context.Context) (*GatewayRequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*GatewayRequestContext)
	return rc, ok
}

// NewHTTPRequest converts a gateway request into an *http.Request.
//
// Headers are expanded with ExpandNullable: null values are dropped and
// comma separated values stay a single value. Names are stored in canonical
// form so http.Header lookups work; names folding to the same canonical key
// are merged in name order. The path is used as-is and never parsed.
func NewHTTPRequest(ctx context.Context, req *GatewayRequest) (*http.Request, error) {
	httpReq, _, err := newHTTPRequest(ctx, req)
	return httpReq, err
}

// newHTTPRequest also returns the expanded headers for metrics
func newHTTPRequest(ctx context.Context, req *GatewayRequest) (*http.Request, ExpandedHeaders, error) {
	if req == nil {
		return nil, ExpandedHeaders{}, ErrNilRequest
	}

	method := req.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	path := req.Path
	if path == "" {
		path = "/"
	}

	query := url.Values{}
	for name, value := range req.QueryStringParameters {
		if name == "" || value == nil {
			continue
		}
		query.Set(name, *value)
	}

	var body []byte
	if req.Body != nil {
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(*req.Body)
			if err != nil {
				return nil, ExpandedHeaders{}, fmt.Errorf("failed to decode request body: %w", err)
			}
			body = decoded
		} else {
			body = []byte(*req.Body)
		}
	}

	rc := req.RequestContext
	httpReq, err := http.NewRequestWithContext(context.WithValue(ctx, requestContextKey{}, &rc), method, "/", bytes.NewReader(body))
	if err != nil {
		return nil, ExpandedHeaders{}, fmt.Errorf("failed to create http request: %w", err)
	}
	// Paths such as "//host/x" or "a:b" would change meaning if reparsed.
	httpReq.URL = &url.URL{Path: path, RawQuery: query.Encode()}

	expanded := ExpandNullable(req.Headers)
	header := make(http.Header, expanded.Len())
	for _, name := range expanded.Names() {
		values, _ := expanded.Get(name)
		key := http.CanonicalHeaderKey(name)
		header[key] = append(header[key], values...)
	}
	httpReq.Header = header
	httpReq.ContentLength = int64(len(body))
	httpReq.RequestURI = httpReq.URL.RequestURI()
	if host := header.Get("Host"); host != "" {
		httpReq.Host = host
	}
	if ip := rc.Identity.SourceIP; ip != "" {
		httpReq.RemoteAddr = ip
	}

	return httpReq, expanded, nil
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithResponseFilter sets the filter applied when flattening response
// headers. The default is TransportManaged.
func WithResponseFilter(filter HeaderFilter) AdapterOption {
	return func(a *Adapter) {
		if filter != nil {
			a.filter = filter
		}
	}
}

// WithLogger sets the logger used for dropped header reports. A nil logger
// keeps the default NoOpLogger.
func WithLogger(logger Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records request and header counts on metrics. Without it the
// adapter records nothing.
func WithMetrics(metrics *Metrics) AdapterOption {
	return func(a *Adapter) {
		a.metrics = metrics
	}
}

// Adapter serves gateway requests with a regular http.Handler
type Adapter struct {
	filter  HeaderFilter
	logger  Logger
	metrics *Metrics
}

// NewAdapter creates an Adapter
func NewAdapter(opts ...AdapterOption) *Adapter {
	a := &Adapter{
		filter: TransportManaged,
		logger: NoOpLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Serve runs handler for req and converts what it wrote into a gateway
// response. Response headers are flattened with the adapter's filter,
// joining multiple values with ValueSeparator. Bodies that are not valid
// UTF-8 are base64 encoded.
func (a *Adapter) Serve(ctx context.Context, handler http.Handler, req *GatewayRequest) (*GatewayResponse, error) {
	httpReq, expanded, err := newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordRequest("gateway")
	a.metrics.RecordHeaders(DirectionExpand, expanded.Len(), len(req.Headers)-expanded.Len())

	w := newResponseRecorder()
	handler.ServeHTTP(w, httpReq)
	w.finish()

	flat := Flatten(w.sent, a.filter)
	dropped := len(w.sent) - flat.Len()
	a.metrics.RecordHeaders(DirectionFlatten, flat.Len(), dropped)
	if dropped > 0 {
		a.logger.Debug("dropped response headers", "count", dropped, "request_id", req.RequestContext.RequestID)
	}

	resp := &GatewayResponse{
		StatusCode: w.status,
		Headers:    flat.Map(),
	}
	body := w.body.Bytes()
	if utf8.Valid(body) {
		resp.Body = string(body)
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(body)
		resp.IsBase64Encoded = true
	}
	return resp, nil
}

// responseRecorder captures a handler's response. Headers are snapshotted
// when the final status is written, matching net/http. Informational 1xx
// statuses other than 101 are not recorded.
type responseRecorder struct {
	header      http.Header
	sent        http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: make(http.Header)}
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	if status >= 100 && status <= 199 && status != http.StatusSwitchingProtocols {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.sent = r.header.Clone()
	if r.sent == nil {
		r.sent = http.Header{}
	}
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		if len(p) > 0 && !hasFold(r.header, "Content-Type") {
			r.header.Set("Content-Type", http.DetectContentType(p))
		}
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(p)
}

func (r *responseRecorder) finish() {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
}

// hasFold reports whether header holds name under any casing. Handlers may
// assign non-canonical keys directly.
func hasFold(header http.Header, name string) bool {
	for key := range header {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}
