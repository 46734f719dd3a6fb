package array

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"sync"

	"github.com/flashconn/flashconn/internal/config"
	"github.com/flashconn/flashconn/pkg/errors"
	"github.com/flashconn/flashconn/pkg/health"
)

// supportedRESTVersions lists the management API versions this client can
// speak, newest first. Negotiation picks the first one the array offers.
var supportedRESTVersions = []string{"1.3", "1.2"}

// Client is the resilient session-managing client for the array management
// API. One instance holds one session token and one negotiated API version,
// shared by every call through it; renewal and renegotiation are serialized
// so concurrent callers never observe a mismatched token/version/URL triple.
type Client struct {
	httpClient *http.Client
	address    string
	apiToken   string
	logger     *slog.Logger
	metrics    *Metrics
	tracker    *health.Tracker

	mu           sync.Mutex // guards version, baseURL, sessionEpoch
	version      string
	baseURL      string
	sessionEpoch uint64 // bumped on session renewal only, never on version changes
}

// NewClient negotiates an API version with the array and establishes a
// session. Construction fails with INCOMPATIBLE_ARRAY_VERSION when the
// array offers no version this client supports.
func NewClient(ctx context.Context, cfg *config.ArrayConfig, logger *slog.Logger, metrics *Metrics) (*Client, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "array address is required")
	}
	if cfg.APIToken == "" {
		return nil, errors.New(errors.ErrCodeCredentialsMissing, "array API token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternalError, err, "failed to create cookie jar")
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		address:  cfg.Address,
		apiToken: cfg.APIToken,
		logger:   logger,
		metrics:  metrics,
	}

	version, err := c.fetchVersion(ctx)
	if err != nil {
		return nil, err
	}
	c.version = version
	c.baseURL = versionedBaseURL(cfg.Address, version)
	c.logger.Info("negotiated array API version", "array", cfg.Address, "version", version)

	if err := c.startSession(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Version returns the currently negotiated API version.
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func versionedBaseURL(address, version string) string {
	return fmt.Sprintf("https://%s/api/%s/", address, version)
}

// fetchVersion asks the array for its supported version list and intersects
// it with ours, preferring the newest version we know.
func (c *Client) fetchVersion(ctx context.Context) (string, error) {
	var out struct {
		Version []string `json:"version"`
	}
	url := fmt.Sprintf("https://%s/api/api_version", c.address)
	if err := c.roundTrip(ctx, http.MethodGet, url, nil, &out); err != nil {
		return "", err
	}
	for _, v := range supportedRESTVersions {
		if slices.Contains(out.Version, v) {
			return v, nil
		}
	}
	return "", errors.Newf(errors.ErrCodeIncompatibleVersion,
		"array at %s offers API versions %v, none of which are supported (want one of %v)",
		c.address, out.Version, supportedRESTVersions)
}

// startSession authenticates the API token. The session rides on the cookie
// jar; callers never see it.
func (c *Client) startSession(ctx context.Context) error {
	body := map[string]string{"api_token": c.apiToken}
	err := c.roundTrip(ctx, http.MethodPost, c.snapshotBase()+"auth/session", body, nil)
	if err != nil {
		if ae, ok := errors.AsArrayError(err); ok && ae.Kind == errors.FaultAuthExpired {
			return errors.Wrap(errors.ErrCodeAuthenticationFailed, err, "array rejected the API token")
		}
		return err
	}
	c.metrics.recordSessionRenewal()
	return nil
}

// SetHealthTracker wires an optional reachability tracker that observes the
// outcome of every call. Wire it before the client is shared; the field is
// not guarded after that.
func (c *Client) SetHealthTracker(tracker *health.Tracker) {
	c.tracker = tracker
}

// HealthCheck returns a probe suitable for health.Tracker.Run, implemented
// as a plain array info request.
func (c *Client) HealthCheck() health.CheckFunc {
	return func(ctx context.Context) error {
		_, err := c.GetInfo(ctx, false)
		return err
	}
}

func (c *Client) snapshot() (version, baseURL string, sessionEpoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, c.baseURL, c.sessionEpoch
}

func (c *Client) snapshotBase() string {
	_, base, _ := c.snapshot()
	return base
}

// refreshSession renews the session at most once per observed expiry. If
// another caller renewed the session since observedEpoch was read, the
// renewal is skipped; the caller just retries with the fresh session.
func (c *Client) refreshSession(ctx context.Context, observedEpoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionEpoch != observedEpoch {
		return nil
	}
	body := map[string]string{"api_token": c.apiToken}
	if err := c.roundTrip(ctx, http.MethodPost, c.baseURL+"auth/session", body, nil); err != nil {
		return err
	}
	c.sessionEpoch++
	c.metrics.recordSessionRenewal()
	c.logger.Debug("array session renewed", "array", c.address)
	return nil
}

// renegotiateVersion re-runs version negotiation after a version-rejected
// response. Returns false when negotiation converges to the version that was
// just rejected, meaning a retry cannot succeed.
func (c *Client) renegotiateVersion(ctx context.Context, rejected string) (changed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != rejected {
		// Another caller already moved us off the rejected version.
		return true, nil
	}
	version, err := c.fetchVersion(ctx)
	if err != nil {
		return false, err
	}
	if version == rejected {
		return false, nil
	}
	// The session epoch is deliberately left alone: a version change must
	// not make a concurrent caller skip a renewal its 401 still needs.
	c.version = version
	c.baseURL = versionedBaseURL(c.address, version)
	c.metrics.recordVersionRenegotiation()
	c.logger.Info("renegotiated array API version", "array", c.address, "version", version)
	return true, nil
}

// Do issues one request against the negotiated API base, applying the
// bounded recovery rules: a single session renewal on an expired session
// and a single version renegotiation on a rejected version. Every other
// fault surfaces to the caller untouched.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	err := c.do(ctx, method, path, params, body, out)
	c.observeHealth(err)
	return err
}

// observeHealth feeds the optional reachability tracker. A business fault
// still proves the array answered, so only transport and exhausted-auth
// failures count against it.
func (c *Client) observeHealth(err error) {
	if c.tracker == nil {
		return
	}
	switch {
	case err == nil:
		c.tracker.RecordSuccess()
	case errors.IsCode(err, errors.ErrCodeArrayUnreachable),
		errors.IsCode(err, errors.ErrCodeAuthenticationFailed):
		c.tracker.RecordError(err)
	default:
		c.tracker.RecordSuccess()
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	version, base, epoch := c.snapshot()
	err := c.roundTrip(ctx, method, requestURL(base, path, params), body, out)
	if err == nil {
		return nil
	}

	switch {
	case errors.IsFault(err, errors.FaultAuthExpired):
		if rerr := c.refreshSession(ctx, epoch); rerr != nil {
			return errors.Wrap(errors.ErrCodeAuthenticationFailed, rerr, "session renewal failed")
		}
		retryErr := c.roundTrip(ctx, method, requestURL(c.snapshotBase(), path, params), body, out)
		if errors.IsFault(retryErr, errors.FaultAuthExpired) {
			return errors.Wrap(errors.ErrCodeAuthenticationFailed, retryErr, "session expired again after renewal")
		}
		return retryErr

	case errors.IsFault(err, errors.FaultVersionRejected):
		changed, rerr := c.renegotiateVersion(ctx, version)
		if rerr != nil {
			return rerr
		}
		if !changed {
			return errors.Wrap(errors.ErrCodeIncompatibleVersion, err,
				"array rejected the only negotiable API version")
		}
		return c.roundTrip(ctx, method, requestURL(c.snapshotBase(), path, params), body, out)
	}
	return err
}

func requestURL(base, path string, params url.Values) string {
	if len(params) == 0 {
		return base + path
	}
	return base + path + "?" + params.Encode()
}

// roundTrip performs exactly one HTTP call and classifies the result. This
// is the only place array error text is inspected.
func (c *Client) roundTrip(ctx context.Context, method, rawURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternalError, err, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternalError, err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.metrics.timeRequest(method, func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		// Outside the scope of HTTP status codes: DNS failure, refused
		// connection, and the like. Never retried.
		return errors.Wrap(errors.ErrCodeArrayUnreachable, err,
			fmt.Sprintf("unable to connect to array at %s", c.address))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeArrayUnreachable, err, "failed to read array response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code, message := decodeErrorBody(data)
		kind := errors.ClassifyFault(resp.StatusCode, message)
		c.logger.Debug("array fault",
			"method", method, "status", resp.StatusCode, "kind", string(kind), "message", message)
		return &errors.ArrayError{Status: resp.StatusCode, Code: code, Message: message, Kind: kind}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(errors.ErrCodeInternalError, err, "array response is not valid JSON")
		}
	}
	return nil
}

// decodeErrorBody parses the array's {code, message} error shape, falling
// back to the raw body text when it is not JSON.
func decodeErrorBody(data []byte) (int, string) {
	var single struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &single); err == nil && single.Message != "" {
		return single.Code, single.Message
	}
	var many []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &many); err == nil && len(many) > 0 {
		return many[0].Code, many[0].Message
	}
	return 0, string(bytes.TrimSpace(data))
}
