package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/htmlrender/config"
	"github.com/use-agent/htmlrender/engine"
	"github.com/use-agent/htmlrender/engine/enginetest"
	"github.com/use-agent/htmlrender/invoice"
	"github.com/use-agent/htmlrender/models"
	"github.com/use-agent/htmlrender/renderer"
)

type testServer struct {
	router   *gin.Engine
	launcher *enginetest.Launcher
	handle   *engine.Handle
}

func newTestServer(t *testing.T, l *enginetest.Launcher, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Defaults()
	cfg.Server.Mode = gin.TestMode
	cfg.RateLimit.Enabled = false
	for _, m := range mutate {
		m(cfg)
	}

	h := engine.NewHandle(l)
	p := renderer.NewPipeline(h, time.Second)
	pdf, img := renderer.NewPDFService(p), renderer.NewImageService(p)
	r := NewRouter(t.Context(), pdf, img, invoice.NewService(pdf, img, cfg.Invoice), h, cfg, time.Now())
	return &testServer{router: r, launcher: l, handle: h}
}

func (s *testServer) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestConvertPDF_Binary(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})

	w := s.post("/api/pdf/convert", `{"html":"<h1>Hi</h1>","options":{"format":"A4"}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=converted.pdf" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Errorf("body is not a PDF: %q", w.Body.Bytes())
	}
}

func TestConvertPDF_Base64MatchesBinary(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})

	bin := s.post("/api/pdf/convert", `{"html":"<h1>Hi</h1>","options":{"format":"A4"}}`)
	js := s.post("/api/pdf/convert", `{"html":"<h1>Hi</h1>","options":{"format":"A4","base64":true}}`)

	if js.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", js.Code, js.Body.String())
	}
	var resp models.Base64Response
	if err := json.Unmarshal(js.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if resp.Type != "application/pdf" || resp.Filename != "converted.pdf" {
		t.Errorf("type/filename = %q/%q", resp.Type, resp.Filename)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if !bytes.Equal(data, bin.Body.Bytes()) {
		t.Error("base64 payload differs from the binary response")
	}
}

func TestConvertImage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType string
		wantName string
		wantSig  []byte
	}{
		{"default png", `{"html":"<p>x</p>"}`, "image/png", "converted.png", enginetest.PNGSignature},
		{"jpeg transparent", `{"html":"<div style='background:red'></div>","options":{"type":"jpeg","transparent":true}}`,
			"image/jpeg", "converted.jpeg", enginetest.JPEGSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &enginetest.Launcher{})
			w := s.post("/api/image/convert", tt.body)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename="+tt.wantName {
				t.Errorf("Content-Disposition = %q", cd)
			}
			if !bytes.HasPrefix(w.Body.Bytes(), tt.wantSig) {
				t.Errorf("body %x does not start with %x", w.Body.Bytes(), tt.wantSig)
			}
		})
	}
}

func TestConvertImage_Base64(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})
	w := s.post("/api/image/convert", `{"html":"<p>x</p>","options":{"type":"jpeg","base64":true}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp models.Base64Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if resp.Type != "image/jpeg" || resp.Filename != "converted.jpeg" {
		t.Errorf("type/filename = %q/%q", resp.Type, resp.Filename)
	}
}

func TestConvert_MissingHTML(t *testing.T) {
	bodies := []string{
		``,
		`{}`,
		`{"html":""}`,
		`{"options":{"base64":true}}`,
	}
	for _, path := range []string{"/api/pdf/convert", "/api/image/convert"} {
		for _, body := range bodies {
			s := newTestServer(t, &enginetest.Launcher{})
			w := s.post(path, body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("%s %q: status = %d, want 400", path, body, w.Code)
				continue
			}
			if got := strings.TrimSpace(w.Body.String()); got != `{"error":"HTML content is required"}` {
				t.Errorf("%s %q: body = %s", path, body, got)
			}
			if s.launcher.Launches() != 0 {
				t.Errorf("%s %q: engine launched", path, body)
			}
		}
	}
}

func TestConvert_InvalidOptions(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})

	tests := []struct {
		path, body string
	}{
		{"/api/pdf/convert", `{"html":"<p>x</p>","options":{"format":"B9"}}`},
		{"/api/pdf/convert", `{"html":"<p>x</p>","options":{"margin":{"top":"lots"}}}`},
		{"/api/image/convert", `{"html":"<p>x</p>","options":{"type":"gif"}}`},
		{"/api/image/convert", `{"html":"<p>x</p>","options":{"type":"jpeg","quality":500}}`},
		{"/api/pdf/convert", `{"html":`},
	}
	for _, tt := range tests {
		w := s.post(tt.path, tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", tt.path, tt.body, w.Code)
			continue
		}
		var resp models.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
		if resp.Code != models.ErrCodeInvalidInput {
			t.Errorf("%s %s: code = %q", tt.path, tt.body, resp.Code)
		}
	}
	if s.launcher.Launches() != 0 {
		t.Errorf("engine launched %d times for invalid input", s.launcher.Launches())
	}
}

func TestConvertPDF_NumericMargin(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})

	w := s.post("/api/pdf/convert", `{"html":"<p>x</p>","options":{"margin":{"top":20,"left":"0.5in"}}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	tabs := s.launcher.Tabs()
	if len(tabs) != 1 || tabs[0].PDFParams() == nil {
		t.Fatalf("expected one tab with PDF params, got %d tabs", len(tabs))
	}
	p := tabs[0].PDFParams()
	if math.Abs(p.MarginTop-20.0/96) > 1e-6 {
		t.Errorf("MarginTop = %v, want %v", p.MarginTop, 20.0/96)
	}
	if math.Abs(p.MarginLeft-0.5) > 1e-6 {
		t.Errorf("MarginLeft = %v, want 0.5", p.MarginLeft)
	}
	if math.Abs(p.MarginRight-1/2.54) > 1e-3 {
		t.Errorf("MarginRight = %v, want default 1cm", p.MarginRight)
	}
}

func TestConvertImage_LenientOptions(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType string
	}{
		{"uppercase type", `{"html":"<p>x</p>","options":{"type":"JPEG"}}`, "image/jpeg"},
		{"png ignores quality", `{"html":"<p>x</p>","options":{"type":"png","quality":0}}`, "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &enginetest.Launcher{})
			w := s.post("/api/image/convert", tt.body)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
		})
	}
}

func TestConvert_BindErrorsDescribePayload(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})

	tests := []struct {
		path, body string
	}{
		{"/api/pdf/convert", `{"html":"<p>x</p>","options":{"landscape":"yes"}}`},
		{"/api/pdf/convert", `{"html":"<p>x</p>","options":{"margin":{"top":true}}}`},
		{"/api/image/convert", `{"html":"<p>x</p>","options":{"quality":"high"}}`},
		{"/api/image/convert", `["<p>x</p>"]`},
	}
	for _, tt := range tests {
		w := s.post(tt.path, tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", tt.path, tt.body, w.Code)
			continue
		}
		var resp models.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
		if resp.Code != models.ErrCodeInvalidInput {
			t.Errorf("%s %s: code = %q", tt.path, tt.body, resp.Code)
		}
		for _, leak := range []string{"Go struct", "Key: '", "models."} {
			if strings.Contains(resp.Error, leak) {
				t.Errorf("%s %s: error %q exposes %q", tt.path, tt.body, resp.Error, leak)
			}
		}
	}
}

func TestConvert_EngineFailuresMapToStatus(t *testing.T) {
	tests := []struct {
		name       string
		launcher   *enginetest.Launcher
		wantStatus int
		wantCode   string
	}{
		{"launch failure", &enginetest.Launcher{LaunchErr: errors.New("no chromium")},
			http.StatusInternalServerError, models.ErrCodeEngineLaunch},
		{"load failure", &enginetest.Launcher{LoadErr: errors.New("crashed")},
			http.StatusInternalServerError, models.ErrCodeRender},
		{"export failure", &enginetest.Launcher{ExportErr: errors.New("printToPDF")},
			http.StatusInternalServerError, models.ErrCodeRender},
		{"timeout", &enginetest.Launcher{BlockLoad: true},
			http.StatusGatewayTimeout, models.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.launcher)
			w := s.post("/api/pdf/convert", `{"html":"<p>x</p>"}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode JSON: %v", err)
			}
			if resp.Code != tt.wantCode || resp.Error == "" {
				t.Errorf("body = %+v, want code %q", resp, tt.wantCode)
			}
			if got, opened := tt.launcher.TabCloseCalls(), len(tt.launcher.Tabs()); got != opened {
				t.Errorf("closed %d of %d tabs", got, opened)
			}
		})
	}
}

func TestConvert_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{}, func(c *config.Config) {
		c.Server.MaxBodyBytes = 64
	})

	body := `{"html":"` + strings.Repeat("x", 1024) + `"}`
	w := s.post("/api/pdf/convert", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

const invoiceBody = `[
	{"invoice_id":454,"invoice_number":"4006","invoice_date":"2025-03-03","balance_due":"496.00","due_by":8},
	{"invoice_id":461,"invoice_number":"104640","invoice_date":"2025-03-13","balance_due":"10400.00","due_by":18}
]`

func TestGenerateInvoice(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantMime string
		wantSig  []byte
	}{
		{"default pdf", "", "application/pdf", enginetest.PDFSignature},
		{"image", "?output_format=image", "image/png", enginetest.PNGSignature},
		{"custom thresholds", "?output_format=PDF&red=10&yellow=5", "application/pdf", enginetest.PDFSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &enginetest.Launcher{})
			w := s.post("/generate/invoice"+tt.query, invoiceBody)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			var resp models.InvoiceResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode JSON: %v", err)
			}
			if resp.Status != "success" || resp.MimeType != tt.wantMime {
				t.Errorf("status/mime = %q/%q", resp.Status, resp.MimeType)
			}
			data, err := base64.StdEncoding.DecodeString(resp.Data)
			if err != nil {
				t.Fatalf("decode base64: %v", err)
			}
			if !bytes.HasPrefix(data, tt.wantSig) {
				t.Errorf("payload %q does not start with %q", data, tt.wantSig)
			}
		})
	}
}

func TestGenerateInvoice_RowThresholdsFromQuery(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})
	if w := s.post("/generate/invoice?red=15&yellow=5", invoiceBody); w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	html := s.launcher.Tabs()[0].HTML()
	if !strings.Contains(html, `class="row-red"`) || !strings.Contains(html, `class="row-yellow"`) {
		t.Errorf("expected one red and one yellow row in %s", html)
	}
}

func TestGenerateInvoice_NoData(t *testing.T) {
	for _, body := range []string{``, `[]`} {
		s := newTestServer(t, &enginetest.Launcher{})
		w := s.post("/generate/invoice", body)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", body, w.Code)
			continue
		}
		if got := strings.TrimSpace(w.Body.String()); got != `{"error":"No data provided"}` {
			t.Errorf("%q: body = %s", body, got)
		}
	}
}

func TestGenerateInvoice_InvalidInput(t *testing.T) {
	tests := []struct {
		name, query, body string
	}{
		{"bad format", "?output_format=docx", invoiceBody},
		{"non-numeric red", "?red=lots", invoiceBody},
		{"yellow above red", "?red=5&yellow=10", invoiceBody},
		{"bad date", "", `[{"invoice_number":"1","invoice_date":"03/03/2025","balance_due":"1","due_by":1}]`},
		{"bad amount", "", `[{"invoice_number":"1","invoice_date":"2025-03-03","balance_due":"invalid-amount","due_by":1}]`},
		{"bad due_by", "", `[{"invoice_number":"1","invoice_date":"2025-03-03","balance_due":"1","due_by":"invalid-days"}]`},
		{"object body", "", `{"invoices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &enginetest.Launcher{})
			w := s.post("/generate/invoice"+tt.query, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode JSON: %v", err)
			}
			if resp.Code != models.ErrCodeInvalidInput {
				t.Errorf("code = %q", resp.Code)
			}
			if s.launcher.Launches() != 0 {
				t.Error("engine launched for invalid input")
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{}, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour}
	})

	for i := 0; i < 2; i++ {
		if w := s.post("/api/pdf/convert", `{"html":"<p>x</p>"}`); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	w := s.post("/api/pdf/convert", `{"html":"<p>x</p>"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})

	get := func() models.HealthResponse {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
		return resp
	}

	if got := get(); got.Status != "idle" || got.Engine.Running {
		t.Errorf("cold health = %+v", got)
	}

	s.post("/api/pdf/convert", `{"html":"<p>x</p>"}`)

	got := get()
	if got.Status != "healthy" || !got.Engine.Running || got.Engine.Launches != 1 || got.Engine.ActiveTabs != 0 {
		t.Errorf("warm health = %+v", got)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	s := newTestServer(t, &enginetest.Launcher{})

	req := httptest.NewRequest(http.MethodOptions, "/api/pdf/convert", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
