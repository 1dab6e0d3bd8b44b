package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxRequestBody caps JSON request bodies
const maxRequestBody = 1 << 20

// WebServer holds the HTTP server configuration
type WebServer struct {
	config *Config
	calc   *CachedCalculator
	addr   string
	logger *zap.Logger
}

// NewWebServer creates a new web server instance. cache may be nil.
func NewWebServer(config *Config, addr string, cache ResultCache, logger *zap.Logger) *WebServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebServer{
		config: config,
		calc:   NewCachedCalculator(NewCalculator(config), cache, logger),
		addr:   addr,
		logger: logger,
	}
}

// APIComputeResponse is the body returned by /api/compute
type APIComputeResponse struct {
	Success         bool             `json:"success"`
	Error           string           `json:"error,omitempty"`
	Result          *DeductionResult `json:"result,omitempty"`
	MonthlyTakeHome decimal.Decimal  `json:"monthly_take_home"`
	EffectiveRate   decimal.Decimal  `json:"effective_deduction_rate"`
	Warnings        []Warning        `json:"warnings"`
	Disclaimer      string           `json:"disclaimer"`
}

// APISweepResponse is the body returned by /api/sweep
type APISweepResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Points  []SweepPoint `json:"points,omitempty"`
}

// Handler returns the routed HTTP handler
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ws.handleIndex)
	mux.HandleFunc("/healthz", ws.handleHealth)
	mux.HandleFunc("/api/config", ws.handleGetConfig)
	mux.HandleFunc("/api/compute", ws.handleCompute)
	mux.HandleFunc("/api/sweep", ws.handleSweep)
	mux.HandleFunc("/api/export-pdf", ws.handleExportPDF)
	return ws.withRequestLogging(mux)
}

// Start listens on the configured address and serves until ctx is cancelled
func (ws *WebServer) Start(ctx context.Context, openInBrowser bool) error {
	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", ws.addr, err)
	}

	url := listenerURL(listener)
	ws.logger.Info("starting web server", zap.String("addr", listener.Addr().String()), zap.String("url", url))
	if openInBrowser {
		go openBrowser(url, ws.logger)
	}

	server := &http.Server{
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(listener)
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		ws.logger.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-serverErr
		return nil
	}
}

// listenerURL returns a browsable URL, using localhost when bound to all interfaces
func listenerURL(listener net.Listener) string {
	actualAddr := listener.Addr().String()
	if strings.HasPrefix(actualAddr, ":") || strings.HasPrefix(actualAddr, "0.0.0.0:") || strings.HasPrefix(actualAddr, "[::]:") {
		port := actualAddr[strings.LastIndex(actualAddr, ":")+1:]
		return fmt.Sprintf("http://localhost:%s", port)
	}
	return fmt.Sprintf("http://%s", actualAddr)
}

// withRequestLogging tags each request with an id and logs its outcome
func (ws *WebServer) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		start := time.Now()
		next.ServeHTTP(w, r)
		ws.logger.Debug("request",
			zap.String("id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// handleIndex serves the main web UI
func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, webUIHTML)
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"status": "ok", "tax_year": ws.config.TaxYear}
	if mem, ok := ws.calc.cache.(*MemoryCache); ok {
		body["cache_entries"] = mem.Len()
	}
	json.NewEncoder(w).Encode(body)
}

// handleGetConfig returns the active configuration
func (ws *WebServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ws.config)
}

// handleCompute runs the pipeline for the posted inputs
func (ws *WebServer) handleCompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var inputs TaxpayerInputs
	if err := decodeJSONBody(w, r, &inputs); err != nil {
		sendJSONError(w, "Invalid request body: "+err.Error())
		return
	}

	result := ws.calc.Compute(r.Context(), inputs)
	warnings := Warnings(result, ws.config)
	if warnings == nil {
		warnings = []Warning{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIComputeResponse{
		Success:         true,
		Result:          &result,
		MonthlyTakeHome: result.MonthlyTakeHome(),
		EffectiveRate:   result.EffectiveDeductionRate(),
		Warnings:        warnings,
		Disclaimer:      Disclaimer,
	})
}

// handleSweep runs a salary sweep. Missing range fields fall back to config.
func (ws *WebServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := SweepRequestFromConfig(ws.config)
	if err := decodeJSONBody(w, r, &req); err != nil {
		sendJSONError(w, "Invalid request body: "+err.Error())
		return
	}

	points, err := RunSalarySweep(r.Context(), ws.calc.calc, req)
	if err != nil {
		sendJSONError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APISweepResponse{Success: true, Points: points})
}

// handleExportPDF returns a PDF breakdown for the posted inputs
func (ws *WebServer) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var inputs TaxpayerInputs
	if err := decodeJSONBody(w, r, &inputs); err != nil {
		sendJSONError(w, "Invalid request body: "+err.Error())
		return
	}

	result := ws.calc.Compute(r.Context(), inputs)
	pdfBytes, err := GenerateBreakdownPDF(inputs, result, Warnings(result, ws.config), nil)
	if err != nil {
		ws.logger.Error("pdf export failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(APIComputeResponse{Success: false, Error: "Failed to generate PDF"})
		return
	}

	filename := fmt.Sprintf("take-home-%s.pdf", time.Now().Format("2006-01-02-150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(pdfBytes)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// sendJSONError sends a JSON error response
func sendJSONError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(APIComputeResponse{
		Success: false,
		Error:   message,
	})
}

// openBrowser opens a URL in the default browser
func openBrowser(url string, logger *zap.Logger) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		logger.Warn("cannot open browser", zap.String("os", runtime.GOOS))
		return
	}

	if err := cmd.Start(); err != nil {
		logger.Warn("error opening browser", zap.Error(err))
	}
}

// webUIHTML is the embedded web interface. Every input change posts to
// /api/compute and redraws the breakdown.
const webUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Take-Home Pay Calculator</title>
    <style>
        :root { --primary: #2563eb; --success: #16a34a; --warning: #ea580c; --bg: #f1f5f9; --text: #1e293b; --muted: #64748b; --border: #e2e8f0; }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: var(--bg); color: var(--text); padding: 24px; }
        h1 { color: var(--primary); margin-bottom: 16px; }
        .layout { display: grid; grid-template-columns: 340px 1fr; gap: 24px; }
        .card { background: #fff; border: 1px solid var(--border); border-radius: 8px; padding: 16px; }
        label { display: block; font-size: 13px; color: var(--muted); margin-top: 10px; }
        input { width: 100%; padding: 6px 8px; border: 1px solid var(--border); border-radius: 4px; }
        table { width: 100%; border-collapse: collapse; }
        td { padding: 6px 4px; border-bottom: 1px solid var(--border); }
        td.amount { text-align: right; font-variant-numeric: tabular-nums; }
        tr.total td { font-weight: bold; color: var(--success); }
        .warning { color: var(--warning); margin-top: 8px; }
        .disclaimer { color: var(--muted); font-size: 12px; font-style: italic; margin-top: 16px; }
        button { margin-top: 16px; padding: 8px 12px; background: var(--primary); color: #fff; border: 0; border-radius: 4px; cursor: pointer; }
    </style>
</head>
<body>
    <h1>Take-Home Pay Calculator</h1>
    <div class="layout">
        <form class="card" id="inputs">
            <label>Salary <input name="salary" type="number" min="0" step="100"></label>
            <label>Bonus <input name="bonus" type="number" min="0" step="100"></label>
            <label>Employee pension % <input name="employee_pension_percent" type="number" min="0" max="100" step="0.5"></label>
            <label>Employer pension % <input name="employer_pension_percent" type="number" min="0" max="100" step="0.5"></label>
            <label>Electric car sacrifice <input name="electric_car_sacrifice" type="number" min="0" step="100"></label>
            <label>Bike to work sacrifice <input name="bike_to_work_sacrifice" type="number" min="0" step="50"></label>
            <label>Nursery cost per hour <input name="nursery_cost_per_hour" type="number" min="0" step="0.1"></label>
            <label>Nursery hours per week <input name="nursery_hours_per_week" type="number" min="0" step="1"></label>
            <label>Children 9 months - 3 years <input name="children_young" type="number" min="0" step="1"></label>
            <label>Children 3 - 4 years <input name="children_mid" type="number" min="0" step="1"></label>
            <button type="button" id="pdf">Download PDF</button>
        </form>
        <div class="card">
            <table id="breakdown"></table>
            <div id="warnings"></div>
            <div class="disclaimer" id="disclaimer"></div>
        </div>
    </div>
    <script>
        const form = document.getElementById('inputs');
        const money = v => '£' + Math.round(parseFloat(v) || 0).toLocaleString('en-GB');
        const counts = ['children_young', 'children_mid'];

        function readInputs() {
            const body = {};
            for (const el of form.elements) {
                if (!el.name) continue;
                const v = Math.max(0, parseFloat(el.value) || 0);
                body[el.name] = counts.includes(el.name) ? Math.floor(v) : String(v);
            }
            return body;
        }

        async function recompute() {
            const res = await fetch('/api/compute', { method: 'POST', body: JSON.stringify(readInputs()) });
            const data = await res.json();
            if (!data.success) { document.getElementById('breakdown').innerHTML = '<tr><td>' + data.error + '</td></tr>'; return; }
            const r = data.result;
            const rows = [
                ['Gross income', r.gross_income], ['Employee pension', -r.employee_pension],
                ['Salary sacrifice', -r.salary_sacrifice], ['Taxable income', r.taxable_income],
                ['Income tax', -r.income_tax], ['National Insurance', -r.national_insurance],
                ['Nursery cost', -r.nursery_cost], ['Employer pension (not deducted)', r.employer_pension],
            ];
            let html = rows.map(([k, v]) => '<tr><td>' + k + '</td><td class="amount">' + money(v) + '</td></tr>').join('');
            html += '<tr class="total"><td>Take-home (year)</td><td class="amount">' + money(r.take_home) + '</td></tr>';
            html += '<tr class="total"><td>Take-home (month)</td><td class="amount">' + money(data.monthly_take_home) + '</td></tr>';
            document.getElementById('breakdown').innerHTML = html;
            document.getElementById('warnings').innerHTML = data.warnings.map(w => '<div class="warning">' + w.message + '</div>').join('');
            document.getElementById('disclaimer').textContent = data.disclaimer;
        }

        async function downloadPDF() {
            const res = await fetch('/api/export-pdf', { method: 'POST', body: JSON.stringify(readInputs()) });
            const blob = await res.blob();
            const a = document.createElement('a');
            a.href = URL.createObjectURL(blob);
            a.download = 'take-home.pdf';
            a.click();
        }

        fetch('/api/config').then(r => r.json()).then(cfg => {
            for (const [k, v] of Object.entries(cfg.inputs || {})) {
                if (form.elements[k]) form.elements[k].value = v;
            }
            recompute();
        });
        form.addEventListener('input', recompute);
        document.getElementById('pdf').addEventListener('click', downloadPDF);
    </script>
</body>
</html>
`
