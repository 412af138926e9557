package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/telecheck/internal/config"
	"github.com/nao1215/telecheck/internal/model"
	"github.com/nao1215/telecheck/internal/rules"
)

const productHTML = `<!DOCTYPE html>
<html>
<head><title>Acme Wellness Program</title></head>
<body>
<h1>Acme Wellness Program</h1>
<p>Our weight management program starts at $199 per month.</p>
<p>Try it with our money-back guarantee, no questions asked.</p>
<form action="/cart/add" method="post">
  <input type="hidden" name="sku" value="program-1">
  <button type="submit">Add to cart</button>
</form>
<footer><a href="/privacy">Privacy</a></footer>
</body>
</html>`

const privacyHTML = `<!DOCTYPE html>
<html>
<head><title>Privacy</title></head>
<body>
<h1>Privacy</h1>
<p>This privacy policy and our terms of use explain how Acme Wellness handles patient information.</p>
<a href="/">Home</a>
</body>
</html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoPageSite() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, productHTML)
	})
	mux.HandleFunc("/privacy", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, privacyHTML)
	})
	return mux
}

func testConfig() config.AnalysisConfig {
	cfg := config.DefaultAnalysisConfig()
	cfg.MaxPages = 10
	cfg.MaxDepth = 2
	return cfg
}

func TestAnalyzeSiteTwoPageSite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(twoPageSite())
	t.Cleanup(srv.Close)

	report, err := AnalyzeSite(context.Background(), srv.URL, testConfig(),
		WithTransport(srv.Client().Transport),
		WithAnalyzeLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("AnalyzeSite() error = %v", err)
	}

	if report.PagesAnalyzed != 2 {
		t.Errorf("expected 2 pages analyzed, got %d (failed: %v)", report.PagesAnalyzed, report.FailedPages)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("expected exactly 1 finding, got %d: %+v", len(report.Findings), report.Findings)
	}
	f := report.Findings[0]
	if f.RuleID != rules.RuleMoneyBackGuarantee {
		t.Errorf("expected rule %s, got %s", rules.RuleMoneyBackGuarantee, f.RuleID)
	}
	if f.Category != model.CategoryFTC {
		t.Errorf("expected category FTC, got %s", f.Category)
	}
	if got := report.ScoreFor(model.CategoryFTC); got == 100 {
		t.Errorf("expected FTC score below 100, got %d", got)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(report.Recommendations))
	}
	if report.Recommendations[0].RelatedFindingIDs[0] != f.ID {
		t.Errorf("expected recommendation to reference %s, got %v", f.ID, report.Recommendations[0].RelatedFindingIDs)
	}

	var product, legal int
	for _, pt := range report.PageTypes {
		switch pt {
		case model.PageTypeProductPage:
			product++
		case model.PageTypeLegalPage:
			legal++
		}
	}
	if product != 1 || legal != 1 {
		t.Errorf("expected one product and one legal page, got %v", report.PageTypes)
	}
	if CoverageError(report) != nil {
		t.Errorf("expected full coverage, got %v", CoverageError(report))
	}
}

func TestAnalyzeSiteZeroPages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	report, err := AnalyzeSite(context.Background(), srv.URL, testConfig(),
		WithTransport(srv.Client().Transport),
		WithAnalyzeLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("AnalyzeSite() error = %v", err)
	}
	if report.PagesAnalyzed != 0 {
		t.Errorf("expected 0 pages analyzed, got %d", report.PagesAnalyzed)
	}
	if report.OverallScore != 100 {
		t.Errorf("expected overall score 100, got %d", report.OverallScore)
	}
	if len(report.Findings) != 0 {
		t.Errorf("expected no findings, got %d", len(report.Findings))
	}
	if !report.Coverage.Partial {
		t.Error("expected partial coverage")
	}
}

func TestAnalyzeSiteCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(twoPageSite())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := AnalyzeSite(ctx, srv.URL, testConfig(),
		WithTransport(srv.Client().Transport),
		WithAnalyzeLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("AnalyzeSite() error = %v", err)
	}
	if !report.Coverage.Partial || report.Coverage.Reason != model.CoverageAborted {
		t.Errorf("expected aborted coverage, got %+v", report.Coverage)
	}
	if !errors.Is(CoverageError(report), ErrCrawlAborted) {
		t.Errorf("expected ErrCrawlAborted, got %v", CoverageError(report))
	}
}

func TestAnalyzeSiteConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		modify func(*config.AnalysisConfig)
		want   error
	}{
		{name: "empty url", url: "", modify: func(*config.AnalysisConfig) {}, want: config.ErrInvalidURL},
		{name: "zero max pages", url: "example.com", modify: func(c *config.AnalysisConfig) { c.MaxPages = 0 }, want: config.ErrInvalidMaxPages},
		{name: "zero concurrency", url: "example.com", modify: func(c *config.AnalysisConfig) { c.Concurrency = 0 }, want: config.ErrInvalidConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultAnalysisConfig()
			tt.modify(&cfg)
			_, err := AnalyzeSite(context.Background(), tt.url, cfg, WithAnalyzeLogger(quietLogger()))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var ce *config.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("expected *config.ConfigError, got %T", err)
			}
		})
	}
}
