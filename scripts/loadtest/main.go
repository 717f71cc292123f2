// Command loadtest fires concurrent conversions at a running htmlrender and
// reports latency per endpoint. Every artifact is checked for the expected
// file signature.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	apiURL      = pflag.String("api-url", "http://localhost:3000", "htmlrender base URL")
	requests    = pflag.IntP("requests", "n", 20, "requests per scenario")
	concurrency = pflag.IntP("concurrency", "c", 4, "in-flight requests per scenario")
	output      = pflag.StringP("output", "o", "", "optional JSON report path")
)

const samplePage = `<!DOCTYPE html>
<html><head><style>
body { font-family: sans-serif; background: linear-gradient(#fafafa, #e0e7ff); }
table { border-collapse: collapse; } td { border: 1px solid #999; padding: 4px; }
</style></head>
<body><h1>Quarterly report</h1><table>
<tr><td>Q1</td><td>120</td></tr><tr><td>Q2</td><td>135</td></tr>
<tr><td>Q3</td><td>128</td></tr><tr><td>Q4</td><td>160</td></tr>
</table></body></html>`

type scenario struct {
	Label     string
	Path      string
	Options   map[string]any
	Signature []byte
}

var scenarios = []scenario{
	{"pdf-a4", "/api/pdf/convert", map[string]any{"format": "A4"}, []byte("%PDF-")},
	{"pdf-letter-landscape", "/api/pdf/convert", map[string]any{"format": "Letter", "landscape": true}, []byte("%PDF-")},
	{"png-fullpage", "/api/image/convert", map[string]any{"type": "png"}, []byte{0x89, 'P', 'N', 'G'}},
	{"jpeg-viewport", "/api/image/convert", map[string]any{"type": "jpeg", "fullPage": false}, []byte{0xff, 0xd8, 0xff}},
}

type scenarioResult struct {
	Label    string   `json:"label"`
	Requests int      `json:"requests"`
	Failures int      `json:"failures"`
	P50Ms    float64  `json:"p50_ms"`
	P95Ms    float64  `json:"p95_ms"`
	MaxMs    float64  `json:"max_ms"`
	AvgBytes int      `json:"avg_bytes"`
	Errors   []string `json:"errors,omitempty"`
}

type report struct {
	Timestamp   string           `json:"timestamp"`
	APIURL      string           `json:"api_url"`
	Concurrency int              `json:"concurrency"`
	Results     []scenarioResult `json:"results"`
}

func main() {
	pflag.Parse()

	client := &http.Client{Timeout: 2 * time.Minute}
	rep := report{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		Concurrency: *concurrency,
	}

	for _, sc := range scenarios {
		fmt.Fprintf(os.Stderr, "running %s (%d requests, concurrency %d)\n", sc.Label, *requests, *concurrency)
		rep.Results = append(rep.Results, run(context.Background(), client, sc))
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tREQS\tFAIL\tP50\tP95\tMAX\tAVG SIZE")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0fms\t%.0fms\t%.0fms\t%dB\n",
			r.Label, r.Requests, r.Failures, r.P50Ms, r.P95Ms, r.MaxMs, r.AvgBytes)
	}
	_ = tw.Flush()

	if *output != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal report: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write report: %v\n", err)
			os.Exit(1)
		}
	}

	for _, r := range rep.Results {
		if r.Failures > 0 {
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, client *http.Client, sc scenario) scenarioResult {
	body, _ := json.Marshal(map[string]any{"html": samplePage, "options": sc.Options})

	var (
		mu        sync.Mutex
		latencies []float64
		totalSize int
		errs      []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	for i := 0; i < *requests; i++ {
		g.Go(func() error {
			start := time.Now()
			size, err := convertOnce(ctx, client, sc, body)
			ms := float64(time.Since(start).Microseconds()) / 1000

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err.Error())
				return nil
			}
			latencies = append(latencies, ms)
			totalSize += size
			return nil
		})
	}
	_ = g.Wait()

	res := scenarioResult{
		Label:    sc.Label,
		Requests: *requests,
		Failures: len(errs),
		Errors:   errs,
	}
	if n := len(latencies); n > 0 {
		sort.Float64s(latencies)
		res.P50Ms = latencies[n/2]
		res.P95Ms = latencies[min(n-1, n*95/100)]
		res.MaxMs = latencies[n-1]
		res.AvgBytes = totalSize / n
	}
	return res
}

func convertOnce(ctx context.Context, client *http.Client, sc scenario, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *apiURL+sc.Path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if !bytes.HasPrefix(data, sc.Signature) {
		return 0, fmt.Errorf("unexpected signature %x", data[:min(8, len(data))])
	}
	return len(data), nil
}
