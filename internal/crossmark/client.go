// Package crossmark is the only place the upstream MVRetail wire
// protocol lives (spec §4.6): session-authenticated request/response
// against the remote system of record. Every other component passes
// this package structured arguments and gets structured domain values
// back.
package crossmark

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config is the subset of the process-wide configuration (spec §6) this
// client needs.
type Config struct {
	BaseURL          string
	Username         string
	Password         string
	RequestTimeout   time.Duration
	SessionRefresh   time.Duration // soft refresh deadline, default 1h
	LocalOffset      string        // e.g. "-05:00", appended to every pushed timestamp
}

// Client is one logical session per process. The refresh path is
// guarded by a mutex so concurrent callers never race to re-login
// (spec §5); individual requests beyond that are parallel-safe.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	loggedInAt  time.Time
	haveSession bool
}

func New(cfg Config, logger *slog.Logger) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &Client{
		http:   http,
		cfg:    cfg,
		logger: logger.With("component", "crossmark_client"),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ensureSession re-logs in if the refresh deadline has passed or no
// session has ever been established. Called at the top of every
// operation; callers that detect an auth-drift response (401 or a
// redirect to login, see sessionExpired) call forceReauth first.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.cfg.SessionRefresh
	if deadline <= 0 {
		deadline = time.Hour
	}
	if c.haveSession && time.Since(c.loggedInAt) < deadline {
		return nil
	}
	return c.login(ctx)
}

func (c *Client) forceReauth(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{Username: c.cfg.Username, Password: c.cfg.Password}).
		Post("/login/authenticate")
	if err != nil {
		c.haveSession = false
		return &TransientError{Cause: fmt.Errorf("login: %w", err)}
	}
	if resp.StatusCode() != 200 {
		c.haveSession = false
		return classifyStatus(resp.StatusCode(), resp.String())
	}
	// resty's default client carries a cookiejar.Jar, so the session
	// cookie MVRetail sets on this response is reused automatically by
	// every subsequent request on this client.
	c.loggedInAt = time.Now()
	c.haveSession = true
	c.logger.Info("crossmark session established")
	return nil
}

// sessionExpired inspects a response for auth drift: a 401, or a 3xx
// redirect whose Location points back to the login page. The cookie jar
// is not inspected, so an empty session cookie is not detected here.
func sessionExpired(resp *resty.Response) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode() == 401 {
		return true
	}
	if resp.StatusCode() >= 300 && resp.StatusCode() < 400 {
		loc := resp.Header().Get("Location")
		return strings.Contains(strings.ToLower(loc), "login")
	}
	return false
}

// Window describes a date range for list operations.
type Window struct {
	From time.Time
	To   time.Time
}

// RemoteEvent is a planning/scheduled event as returned by MVRetail,
// preserving upstream identity exactly.
type RemoteEvent struct {
	ExternalID    string
	LocationMVID  string
	ProjectName   string
	StartDatetime time.Time
	DueDatetime   time.Time
}

// RemoteRep is a roster entry as returned by MVRetail.
type RemoteRep struct {
	ExternalID string
	Name       string
	JobTitle   string
}

// PushAssignmentInput carries everything push_assignment needs (spec
// §4.6). Start/End are rendered in Config.LocalOffset and percent-encoded
// per the wire format — colons MUST become %3A or many upstream
// deployments silently reject the request.
type PushAssignmentInput struct {
	RepID              string
	MPlanID            string
	LocationID         string
	Start              time.Time
	End                time.Time
	PlanningOverride   bool
}

// PushAssignment is push_assignment: POST
// /planningextcontroller/scheduleMplanEvent, form-url-encoded, with the
// exact field set and ordering spec §4.6 prescribes.
func (c *Client) PushAssignment(ctx context.Context, in PushAssignmentInput) (upstreamID string, err error) {
	return c.doWithReauth(ctx, func() (string, *resty.Response, error) {
		// Built by hand, in the exact field order spec §4.6 prescribes,
		// rather than through resty's form encoder: SetFormData would
		// re-percent-encode the already-escaped Start/End values and
		// silently double-encode the colons the wire format requires.
		body := strings.Join([]string{
			"ClassName=" + url.QueryEscape("MVScheduledmPlan"),
			"RepID=" + url.QueryEscape(in.RepID),
			"mPlanID=" + url.QueryEscape(in.MPlanID),
			"LocationID=" + url.QueryEscape(in.LocationID),
			"Start=" + c.encodeTimestamp(in.Start),
			"End=" + c.encodeTimestamp(in.End),
			"hash=",
			"v=3.0.1",
			fmt.Sprintf("PlanningOverride=%t", in.PlanningOverride),
		}, "&")

		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(body).
			Post("/planningextcontroller/scheduleMplanEvent")
		if err != nil {
			return "", resp, err
		}
		var respBody struct {
			ID string `json:"id"`
		}
		// The upstream id may come back in a JSON body or be absent
		// entirely on some deployments; a decode failure is not itself
		// an error worth surfacing, since the push already succeeded.
		if jerr := json.Unmarshal(resp.Body(), &respBody); jerr == nil {
			return respBody.ID, resp, nil
		}
		return "", resp, nil
	})
}

// encodeTimestamp renders t as YYYY-MM-DDTHH:MM:SS±HH:MM in the
// configured local offset, with the mandatory colon percent-encoding
// (spec §4.6/§6: "many upstream deployments reject un-encoded colons
// silently" — this is the one substitution the wire format requires,
// so it is applied directly rather than through a general URL encoder).
func (c *Client) encodeTimestamp(t time.Time) string {
	raw := t.Format("2006-01-02T15:04:05") + c.cfg.LocalOffset
	return strings.ReplaceAll(raw, ":", "%3A")
}

// DeleteAssignment is delete_assignment: removes an upstream assignment
// by its external id.
func (c *Client) DeleteAssignment(ctx context.Context, externalID string) error {
	_, err := c.doWithReauth(ctx, func() (string, *resty.Response, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"ClassName": "MVScheduledmPlan",
				"id":        externalID,
			}).
			Post("/planningextcontroller/deleteScheduledMplanEvent")
		return "", resp, err
	})
	return err
}

// ListScheduledEvents is list_scheduled_events.
func (c *Client) ListScheduledEvents(ctx context.Context, w Window) ([]RemoteEvent, error) {
	var out []remoteEventDTO
	_, err := c.doWithReauth(ctx, func() (string, *resty.Response, error) {
		resp, jerr := c.getJSON(ctx, "/planningextcontroller/scheduledEvents", w, &out)
		return "", resp, jerr
	})
	if err != nil {
		return nil, err
	}
	return mapRemoteEvents(out), nil
}

// ListPlanningEvents is list_planning_events.
func (c *Client) ListPlanningEvents(ctx context.Context) ([]RemoteEvent, error) {
	var out []remoteEventDTO
	_, err := c.doWithReauth(ctx, func() (string, *resty.Response, error) {
		resp, jerr := c.getJSON(ctx, "/planningextcontroller/planningEvents", Window{}, &out)
		return "", resp, jerr
	})
	if err != nil {
		return nil, err
	}
	return mapRemoteEvents(out), nil
}

// ListAvailableReps is list_available_reps.
func (c *Client) ListAvailableReps(ctx context.Context, w Window) ([]RemoteRep, error) {
	var out []remoteRepDTO
	_, err := c.doWithReauth(ctx, func() (string, *resty.Response, error) {
		resp, jerr := c.getJSON(ctx, "/planningextcontroller/availableReps", w, &out)
		return "", resp, jerr
	})
	if err != nil {
		return nil, err
	}
	reps := make([]RemoteRep, 0, len(out))
	for _, r := range out {
		id := r.RepID
		if id == "" {
			id = r.EmployeeID
		}
		reps = append(reps, RemoteRep{ExternalID: id, Name: r.Title, JobTitle: r.Role})
	}
	return reps, nil
}

// HealthCheck returns nil iff a trivial authenticated call succeeds.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.doWithReauth(ctx, func() (string, *resty.Response, error) {
		resp, err := c.http.R().SetContext(ctx).Get("/planningextcontroller/ping")
		return "", resp, err
	})
	return err
}

// doWithReauth runs op, ensuring a session first; if the response shows
// auth drift it force-reauths exactly once and retries op once more
// (spec §7: "local recovery is attempted ... for session drift").
func (c *Client) doWithReauth(ctx context.Context, op func() (string, *resty.Response, error)) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}

	id, resp, err := op()
	if err == nil && resp != nil && sessionExpired(resp) {
		if reErr := c.forceReauth(ctx); reErr != nil {
			return "", reErr
		}
		id, resp, err = op()
	}
	if err != nil {
		return "", &TransientError{Cause: err}
	}
	if resp.StatusCode() >= 300 {
		return "", classifyStatus(resp.StatusCode(), resp.String())
	}
	return id, nil
}

func (c *Client) getJSON(ctx context.Context, path string, w Window, out any) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if !w.From.IsZero() {
		req.SetQueryParam("from", w.From.Format("2006-01-02"))
	}
	if !w.To.IsZero() {
		req.SetQueryParam("to", w.To.Format("2006-01-02"))
	}
	resp, err := req.Get(path)
	if err != nil || resp.StatusCode() >= 300 {
		return resp, err
	}
	if jerr := json.Unmarshal(resp.Body(), out); jerr != nil {
		return resp, fmt.Errorf("decode response body: %w", jerr)
	}
	return resp, nil
}
