// Command smokecheck replays a set of HTTP targets against a running
// unitime-api instance and reports status and latency per endpoint.
// It exits non-zero when any critical target fails, so it can gate a
// deployment pipeline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Name       string `json:"name"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	WantStatus int    `json:"wantStatus"`
	Critical   bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Duration time.Duration
	Error    error
}

func main() {
	var (
		baseURL     string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smokecheck", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		warnings int
	)

	for _, t := range targets {
		res := checkTarget(client, baseURL, t)
		if res.Error != nil || !statusOK(res) {
			if t.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Failures: %d, Warnings: %d\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultTargets(), nil
		}
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

// defaultTargets covers the read-only surface that needs no seeded data.
func defaultTargets() []target {
	return []target{
		{Name: "health", Path: "/health", WantStatus: http.StatusOK, Critical: true},
		{Name: "ready", Path: "/ready", WantStatus: http.StatusOK, Critical: true},
		{Name: "metrics", Path: "/metrics", WantStatus: http.StatusOK, Critical: false},
		{Name: "catalog list", Path: "/api/v1/catalogs", WantStatus: http.StatusOK, Critical: false},
	}
}

func checkTarget(client *http.Client, baseURL string, tgt target) result {
	res := result{Target: tgt}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(baseURL, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		res.Error = fmt.Errorf("build request: %w", err)
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = fmt.Errorf("request failed: %w", err)
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	return res
}

func statusOK(res result) bool {
	want := res.Target.WantStatus
	if want == 0 {
		want = http.StatusOK
	}
	return res.Status == want
}

func printReport(results []result) {
	fmt.Printf("%-24s %-8s %-40s %-8s %-10s %s\n", "NAME", "METHOD", "PATH", "STATUS", "DURATION", "RESULT")
	for _, res := range results {
		method := res.Target.Method
		if method == "" {
			method = http.MethodGet
		}
		outcome := "ok"
		switch {
		case res.Error != nil:
			outcome = "error: " + res.Error.Error()
		case !statusOK(res):
			outcome = fmt.Sprintf("want %d", res.Target.WantStatus)
		}
		fmt.Printf("%-24s %-8s %-40s %-8d %-10s %s\n",
			res.Target.Name, strings.ToUpper(method), res.Target.Path,
			res.Status, res.Duration.Round(time.Millisecond), outcome)
	}
}
