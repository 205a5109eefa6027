package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/liamcoop/cardiorisk/internal/config"
	"github.com/liamcoop/cardiorisk/internal/logger"
)

// upstream is a fake prediction service that records what it receives.
type upstream struct {
	*httptest.Server
	status int
	body   string

	mu       sync.Mutex
	payloads []map[string]any
	ids      []string
}

func (u *upstream) payload(i int) map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.payloads[i]
}

func (u *upstream) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.payloads)
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{status: status, body: body}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]any
		json.NewDecoder(r.Body).Decode(&p)
		u.mu.Lock()
		u.payloads = append(u.payloads, p)
		u.ids = append(u.ids, r.Header.Get("X-Request-ID"))
		u.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(u.status)
		io.WriteString(w, u.body)
	}))
	t.Cleanup(u.Close)
	return u
}

func newTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *http.Client) {
	t.Helper()
	logger.SetOutput(io.Discard)

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return ts, &http.Client{Jar: jar}
}

func configFor(endpoint string) config.Config {
	cfg := config.Default()
	cfg.EndpointURL = endpoint
	return cfg
}

func formValues(apHi, apLo string) url.Values {
	return url.Values{
		"age":         {"50"},
		"gender":      {"2"},
		"ap_hi":       {apHi},
		"ap_lo":       {apLo},
		"cholesterol": {"1"},
		"gluc":        {"1"},
		"smoke":       {"0"},
		"alco":        {"0"},
		"active":      {"1"},
		"bmi":         {"24.5"},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(b)
}

func TestIndexRendersDefaultForm(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 0}`)
	ts, client := newTestServer(t, configFor(up.URL))

	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Get Risk Assessment") {
		t.Error("page missing submit button")
	}

	u, _ := url.Parse(ts.URL)
	if len(client.Jar.Cookies(u)) == 0 {
		t.Error("session cookie not set")
	}
	if up.calls() != 0 {
		t.Error("rendering the page should not call the prediction service")
	}
}

// TestFormSubmitHighRisk verifies the full form round trip and the payload sent upstream
func TestFormSubmitHighRisk(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 1}`)
	ts, client := newTestServer(t, configFor(up.URL))

	resp, err := client.PostForm(ts.URL+"/assess", formValues("120", "80"))
	if err != nil {
		t.Fatalf("POST /assess failed: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status after redirect = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "High Risk") || !strings.Contains(body, "alert-high-risk") {
		t.Error("page should show the high risk result")
	}

	if up.calls() != 1 {
		t.Fatalf("upstream saw %d requests, want 1", up.calls())
	}
	p := up.payload(0)
	if p["ap_hi"] != float64(1) || p["ap_lo"] != float64(1) {
		t.Errorf("ap_hi/ap_lo = %v/%v, want 1/1", p["ap_hi"], p["ap_lo"])
	}
	if p["age"] != float64(50) || p["bmi"] != 24.5 {
		t.Errorf("age/bmi = %v/%v", p["age"], p["bmi"])
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	if up.ids[0] == "" {
		t.Error("X-Request-ID not sent")
	}
}

func TestFormSubmitServerError(t *testing.T) {
	up := newUpstream(t, http.StatusInternalServerError, `{"error": "model unavailable"}`)
	ts, client := newTestServer(t, configFor(up.URL))

	resp, err := client.PostForm(ts.URL+"/assess", formValues("185", "95"))
	if err != nil {
		t.Fatalf("POST /assess failed: %v", err)
	}
	body := readBody(t, resp)

	if !strings.Contains(body, "model unavailable") {
		t.Error("page should show the server's error message")
	}
	if strings.Contains(body, "result-alert") {
		t.Error("page should not show a result")
	}
	if p := up.payload(0); p["ap_hi"] != float64(4) || p["ap_lo"] != float64(3) {
		t.Errorf("ap_hi/ap_lo = %v/%v, want 4/3", p["ap_hi"], p["ap_lo"])
	}
}

func TestAPIAssess(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 0}`)
	ts, client := newTestServer(t, configFor(up.URL))

	reqBody := `{"age":"61","gender":"1","ap_hi":"abc","ap_lo":"88","bmi":"31.2"}`
	resp, err := client.Post(ts.URL+"/api/v1/assess", "application/json", strings.NewReader(reqBody))
	if err != nil {
		t.Fatalf("POST /api/v1/assess failed: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var view struct {
		State   string `json:"state"`
		Loading bool   `json:"loading"`
		Form    map[string]string
		Result  *struct {
			Output int    `json:"output"`
			Title  string `json:"title"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(body), &view); err != nil {
		t.Fatalf("invalid view: %v", err)
	}
	if view.State != "succeeded" || view.Loading {
		t.Errorf("state = %q loading = %v", view.State, view.Loading)
	}
	if view.Result == nil || view.Result.Title != "Low Risk" {
		t.Errorf("result = %+v, want low risk", view.Result)
	}
	if view.Form["cholesterol"] != "1" {
		t.Errorf("omitted fields should keep defaults, got cholesterol=%q", view.Form["cholesterol"])
	}

	p := up.payload(0)
	if p["ap_hi"] != float64(1) || p["ap_lo"] != float64(2) {
		t.Errorf("ap_hi/ap_lo = %v/%v, want 1/2", p["ap_hi"], p["ap_lo"])
	}

	// The session keeps the result for later reads.
	resp, err = client.Get(ts.URL + "/api/v1/assess")
	if err != nil {
		t.Fatalf("GET /api/v1/assess failed: %v", err)
	}
	if body := readBody(t, resp); !strings.Contains(body, "Low Risk") {
		t.Errorf("stored view lacks result: %s", body)
	}
}

func TestAPIAssessInvalidBody(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 0}`)
	ts, client := newTestServer(t, configFor(up.URL))

	before := logger.Snapshot()["http_4xx"]

	resp, err := client.Post(ts.URL+"/api/v1/assess", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body, "invalid request body") {
		t.Errorf("body = %s", body)
	}
	if got := logger.Snapshot()["http_4xx"]; got != before+1 {
		t.Errorf("http_4xx = %d, want %d", got, before+1)
	}
}

// TestAPIAssessConflict verifies a second submission on a busy session gets 409
func TestAPIAssessConflict(t *testing.T) {
	received := make(chan struct{}, 1)
	release := make(chan struct{})
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		<-release
		io.WriteString(w, `{"Output": 1}`)
	}))
	defer up.Close()
	defer close(release)

	ts, client := newTestServer(t, configFor(up.URL))

	// Establish the session cookie first.
	resp, err := client.Get(ts.URL + "/api/v1/assess")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	readBody(t, resp)

	first := make(chan int, 1)
	go func() {
		resp, err := client.Post(ts.URL+"/api/v1/assess", "application/json", strings.NewReader(`{"age":"40"}`))
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-received

	resp, err = client.Post(ts.URL+"/api/v1/assess", "application/json", strings.NewReader(`{"age":"41"}`))
	if err != nil {
		t.Fatalf("second POST failed: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second status = %d, want 409", resp.StatusCode)
	}
	if !strings.Contains(body, "already being processed") {
		t.Errorf("body = %s", body)
	}

	// A page load while busy shows the disabled button.
	resp, err = client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	if page := readBody(t, resp); !strings.Contains(page, "Analyzing...") {
		t.Error("page should show the loading label while busy")
	}

	release <- struct{}{}
	if status := <-first; status != http.StatusOK {
		t.Errorf("first status = %d, want 200", status)
	}
}

func TestThemeToggle(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 0}`)
	ts, client := newTestServer(t, configFor(up.URL))

	resp, err := client.Post(ts.URL+"/theme", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /theme failed: %v", err)
	}
	if body := readBody(t, resp); !strings.Contains(body, `data-theme="dark"`) {
		t.Error("theme should be dark after one toggle")
	}

	resp, err = client.Post(ts.URL+"/theme", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST /theme failed: %v", err)
	}
	if body := readBody(t, resp); !strings.Contains(body, `data-theme="light"`) {
		t.Error("theme should be light after two toggles")
	}
}

func TestHealthAndBands(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 0}`)
	ts, client := newTestServer(t, configFor(up.URL))

	resp, err := client.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	var health HealthResponse
	if err := json.Unmarshal([]byte(readBody(t, resp)), &health); err != nil {
		t.Fatalf("invalid health body: %v", err)
	}
	if health.Status != "healthy" || len(health.Tables) != 2 {
		t.Errorf("health = %+v", health)
	}

	resp, err = client.Get(ts.URL + "/api/v1/bands")
	if err != nil {
		t.Fatalf("GET /bands failed: %v", err)
	}
	var bandsResp BandsResponse
	if err := json.Unmarshal([]byte(readBody(t, resp)), &bandsResp); err != nil {
		t.Fatalf("invalid bands body: %v", err)
	}
	if len(bandsResp.Tables) != 2 || bandsResp.Tables[0].Name != "ap_hi" {
		t.Errorf("tables = %+v", bandsResp.Tables)
	}
	if len(bandsResp.Tables[0].Bands) != 4 {
		t.Errorf("ap_hi has %d bands, want 4", len(bandsResp.Tables[0].Bands))
	}
}

func TestMetrics(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 1}`)
	ts, client := newTestServer(t, configFor(up.URL))

	before := logger.Snapshot()

	resp, err := client.PostForm(ts.URL+"/assess", formValues("150", "92"))
	if err != nil {
		t.Fatalf("POST /assess failed: %v", err)
	}
	readBody(t, resp)

	resp, err = client.Get(ts.URL + "/api/v1/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	var metrics map[string]int64
	if err := json.Unmarshal([]byte(readBody(t, resp)), &metrics); err != nil {
		t.Fatalf("invalid metrics body: %v", err)
	}
	if metrics["high_risk"] != before["high_risk"]+1 {
		t.Errorf("high_risk = %d, want %d", metrics["high_risk"], before["high_risk"]+1)
	}
}

func TestStaticStylesheet(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 0}`)
	ts, client := newTestServer(t, configFor(up.URL))

	resp, err := client.Get(ts.URL + "/static/style.css")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

// TestBandsFileOverride verifies tables loaded from BANDS_FILE drive the payload
func TestBandsFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bands.json")
	tables := `[{"name":"ap_hi","bands":[{"code":1,"name":"low","expression":"v < 100"},{"code":3,"name":"high","expression":"v >= 100"}],"fallback":1}]`
	if err := os.WriteFile(path, []byte(tables), 0o644); err != nil {
		t.Fatalf("failed to write bands file: %v", err)
	}

	up := newUpstream(t, http.StatusOK, `{"Output": 0}`)
	cfg := configFor(up.URL)
	cfg.BandsFile = path
	ts, client := newTestServer(t, cfg)

	resp, err := client.PostForm(ts.URL+"/assess", formValues("120", "80"))
	if err != nil {
		t.Fatalf("POST /assess failed: %v", err)
	}
	readBody(t, resp)

	if p := up.payload(0); p["ap_hi"] != float64(3) || p["ap_lo"] != float64(1) {
		t.Errorf("ap_hi/ap_lo = %v/%v, want 3/1", p["ap_hi"], p["ap_lo"])
	}
}

func TestNewServerRejectsBadBandsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bands.json")
	os.WriteFile(path, []byte(`[{"name":"ap_hi","bands":[{"code":9,"name":"x","expression":"v > 1"}],"fallback":1}]`), 0o644)

	cfg := configFor("http://localhost:1/predict")
	cfg.BandsFile = path
	if _, err := NewServer(cfg); err == nil {
		t.Error("NewServer() should reject an invalid band file")
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusBadRequest, "bad", bytes.ErrTooLarge)

	var body ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "bad" || body.Details == "" {
		t.Errorf("body = %+v", body)
	}
}

// TestLoadSettingsAppliesEnvFileToLogger verifies .env entries reach the logger setup
func TestLoadSettingsAppliesEnvFileToLogger(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "OTEL_ENABLED"} {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
	prevLevel := logger.GetLevel()
	t.Cleanup(func() {
		logger.SetLevel(prevLevel)
		logger.SetOutput(io.Discard)
	})

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LOG_LEVEL=ERROR\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	if _, err := loadSettings(context.Background(), path); err != nil {
		t.Fatalf("loadSettings() failed: %v", err)
	}
	if got := logger.GetLevel(); got != logger.LevelError {
		t.Errorf("logger level = %v, want ERROR from the env file", got)
	}
}

func TestAPIAssessNumericFields(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"Output": 1}`)
	ts, client := newTestServer(t, configFor(up.URL))

	body := `{"age":50,"gender":2,"ap_hi":185,"ap_lo":95,"bmi":24.5}`
	resp, err := client.Post(ts.URL+"/api/v1/assess", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/v1/assess failed: %v", err)
	}
	if out := readBody(t, resp); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, out)
	}

	p := up.payload(0)
	if p["age"] != float64(50) || p["gender"] != float64(2) || p["bmi"] != 24.5 {
		t.Errorf("age/gender/bmi = %v/%v/%v", p["age"], p["gender"], p["bmi"])
	}
	if p["ap_hi"] != float64(4) || p["ap_lo"] != float64(3) {
		t.Errorf("ap_hi/ap_lo = %v/%v, want 4/3", p["ap_hi"], p["ap_lo"])
	}

	resp, err = client.Post(ts.URL+"/api/v1/assess", "application/json", strings.NewReader(`{"age":true}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("boolean field status = %d, want 400", resp.StatusCode)
	}
}
