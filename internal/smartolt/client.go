package smartolt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/domain/dto"
	"onu-map/internal/metrics"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	TokenHeader    = "X-Token"
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 32 << 20

	pathOnuDetails   = "/api/onu/get_all_onus_details"
	pathOnuStatuses  = "/api/onu/get_onus_statuses"
	pathOnuLocations = "/api/onu/get_all_onus_gps_coordinates"
	pathOnuDetail    = "/api/onu/get_onu_details/"
	pathOnuSignal    = "/api/onu/get_onu_signal/"
	pathOLTs         = "/api/system/get_olts"
)

// Config holds the upstream connection settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the SmartOLT REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*response]
	logger     domain.Observability
}

var _ domain.VendorAPI = (*Client)(nil)

// envelope is the part shared by every upstream response
type envelope struct {
	Status bool   `json:"status"`
	Error  string `json:"error"`
}

type response struct {
	statusCode int
	body       []byte
}

// New creates a new SmartOLT client
func New(config Config, logger domain.Observability) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, ErrEmptyBaseURL
	}
	if strings.TrimSpace(config.Token) == "" {
		return nil, ErrEmptyToken
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    newBreaker(logger),
		logger:     logger,
	}, nil
}

// FetchOnuDetails returns the full ONU detail set matching filters
func (c *Client) FetchOnuDetails(ctx context.Context, filters domain.Filters) ([]dto.OnuDetails, error) {
	var payload struct {
		Onus []dto.OnuDetails `json:"onus"`
	}
	if err := c.get(ctx, "get_all_onus_details", pathOnuDetails, filterQuery(filters), &payload); err != nil {
		return nil, err
	}
	return payload.Onus, nil
}

// FetchOnuStatuses returns the live status of every ONU matching filters
func (c *Client) FetchOnuStatuses(ctx context.Context, filters domain.Filters) ([]dto.OnuStatus, error) {
	var payload struct {
		Response []dto.OnuStatus `json:"response"`
	}
	if err := c.get(ctx, "get_onus_statuses", pathOnuStatuses, filterQuery(filters), &payload); err != nil {
		return nil, err
	}
	return payload.Response, nil
}

// FetchOnuLocations returns the GPS coordinates of every ONU matching filters
func (c *Client) FetchOnuLocations(ctx context.Context, filters domain.Filters) ([]dto.OnuLocation, error) {
	var payload struct {
		Onus []dto.OnuLocation `json:"onus"`
	}
	if err := c.get(ctx, "get_all_onus_gps_coordinates", pathOnuLocations, filterQuery(filters), &payload); err != nil {
		return nil, err
	}
	return payload.Onus, nil
}

// FetchOnuDetail returns the details of a single ONU
func (c *Client) FetchOnuDetail(ctx context.Context, externalID string) (*dto.OnuDetails, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "get_onu_details", "", ErrEmptyID)
	}

	var payload struct {
		OnuDetails *dto.OnuDetails `json:"onu_details"`
	}
	if err := c.get(ctx, "get_onu_details", pathOnuDetail+url.PathEscape(externalID), nil, &payload); err != nil {
		return nil, err
	}
	if payload.OnuDetails == nil {
		return nil, domain.NewError(domain.KindNotFound, "get_onu_details", fmt.Sprintf("onu %s not found", externalID), nil)
	}
	if payload.OnuDetails.UniqueExternalID == "" {
		payload.OnuDetails.UniqueExternalID = dto.FlexString(externalID)
	}
	return payload.OnuDetails, nil
}

// FetchOnuSignal returns the optical signal readings of a single ONU
func (c *Client) FetchOnuSignal(ctx context.Context, externalID string) (*dto.OnuSignal, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "get_onu_signal", "", ErrEmptyID)
	}

	var signal dto.OnuSignal
	if err := c.get(ctx, "get_onu_signal", pathOnuSignal+url.PathEscape(externalID), nil, &signal); err != nil {
		return nil, err
	}
	return &signal, nil
}

// FetchOLTs returns every concentrator known to the upstream
func (c *Client) FetchOLTs(ctx context.Context) ([]dto.OLT, error) {
	var payload struct {
		Response []dto.OLT `json:"response"`
	}
	if err := c.get(ctx, "get_olts", pathOLTs, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Response, nil
}

// get performs one GET, unwraps the envelope and decodes the payload into dst
func (c *Client) get(ctx context.Context, op, path string, query url.Values, dst any) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		kind := ""
		if err != nil {
			kind = string(domain.KindOf(err))
		}
		metrics.RecordUpstream(op, elapsed, kind)
		c.logger.Benchmark("smartolt "+op, elapsed)
	}()

	res, err := c.breaker.Execute(func() (*response, error) {
		return c.do(ctx, op, path, query)
	})
	if err != nil {
		return breakerError(op, err)
	}

	if err := json.Unmarshal(res.body, dst); err != nil {
		return transportError(op, fmt.Errorf("decoding payload: %w", err))
	}
	return nil
}

// do runs the HTTP exchange. Any error returned is a typed *domain.Error.
func (c *Client) do(ctx context.Context, op, path string, query url.Values) (*response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set(TokenHeader, c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.WithFields(map[string]any{
		"op":   op,
		"path": path,
	}).Debug("Sending upstream request")

	httpRes, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(op, fmt.Errorf("reading body: %w", err))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if httpRes.StatusCode == http.StatusUnauthorized || httpRes.StatusCode == http.StatusForbidden {
			return nil, applicationError(op, httpRes.StatusCode, "")
		}
		return nil, transportError(op, fmt.Errorf("%w (http %d)", ErrUnexpectedBody, httpRes.StatusCode))
	}

	if httpRes.StatusCode >= http.StatusBadRequest || !env.Status {
		appErr := applicationError(op, httpRes.StatusCode, env.Error)
		c.logger.WithFields(map[string]any{
			"op":          op,
			"http_status": httpRes.StatusCode,
			"kind":        appErr.Kind,
		}).Warn("Upstream reported failure: " + appErr.Message)
		return nil, appErr
	}

	return &response{statusCode: httpRes.StatusCode, body: body}, nil
}

func filterQuery(filters domain.Filters) url.Values {
	query := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			query.Set(key, value)
		}
	}
	set("olt_id", filters.OLTID)
	set("board", filters.Board)
	set("port", filters.Port)
	set("zone", filters.Zone)
	return query
}
