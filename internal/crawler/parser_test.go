package crawler

import (
	"slices"
	"strings"
	"testing"
)

func mustParse(t *testing.T, base, doc string) *ParseResult {
	t.Helper()

	parser, err := NewParser(base)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	result, err := parser.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return result
}

// TestParser tests HTML parsing functionality.
func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title and meta description", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://clinic.test/", `<html><head>
			<title> Weight  Care </title>
			<meta name="Description" content="Online visits">
			</head><body></body></html>`)

		if result.Title != "Weight Care" {
			t.Errorf("expected title 'Weight Care', got %q", result.Title)
		}
		if result.MetaDescription != "Online visits" {
			t.Errorf("expected meta description, got %q", result.MetaDescription)
		}
	})

	t.Run("visible text skips scripts and separates blocks", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://clinic.test/", `<html><body>
			<script>var cure = "miracle";</script>
			<style>.x{}</style>
			<h1>Get started</h1><p>Talk to a doctor</p><div>today</div>
			</body></html>`)

		if result.Text != "Get started Talk to a doctor today" {
			t.Errorf("unexpected text %q", result.Text)
		}
		if !slices.Equal(result.Headings, []string{"Get started"}) {
			t.Errorf("unexpected headings %v", result.Headings)
		}
	})

	t.Run("resolves and deduplicates links", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://clinic.test/blog/post", `<html><body>
			<a href="../shop/">Shop</a>
			<a href="/shop/#top">Shop again</a>
			<a href="https://other.test/x">Other</a>
			<a href="mailto:care@clinic.test">Mail</a>
			<a href="javascript:void(0)">JS</a>
			<a href="#section">Anchor</a>
			</body></html>`)

		expected := []string{"https://clinic.test/shop/", "https://other.test/x"}
		if !slices.Equal(result.Links, expected) {
			t.Errorf("expected %v, got %v", expected, result.Links)
		}
	})

	t.Run("form actions are links", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://clinic.test/", `<form action="/cart/add" method="post"></form>`)
		if !slices.Contains(result.Links, "https://clinic.test/cart/add") {
			t.Errorf("expected form action in links, got %v", result.Links)
		}
	})

	t.Run("extracts forms", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://clinic.test/intake", `<html><body>
			<form action="/submit">
				<input name="weight" placeholder="Weight (lbs)" required>
				<input type="email" id="email">
				<select name="state"></select>
				<textarea name="symptoms"></textarea>
				<input type="submit" value="Continue">
				<button>Send</button>
				<button type="button">Cancel</button>
			</form></body></html>`)

		if len(result.Forms) != 1 {
			t.Fatalf("expected 1 form, got %d", len(result.Forms))
		}
		form := result.Forms[0]
		if form.Method != "GET" {
			t.Errorf("expected default method GET, got %q", form.Method)
		}
		if form.Action != "https://clinic.test/submit" {
			t.Errorf("expected resolved action, got %q", form.Action)
		}
		if len(form.Fields) != 4 {
			t.Fatalf("expected 4 fields, got %d: %+v", len(form.Fields), form.Fields)
		}
		if !form.Fields[0].Required || form.Fields[0].Type != "text" || form.Fields[0].Placeholder != "Weight (lbs)" {
			t.Errorf("unexpected first field %+v", form.Fields[0])
		}
		if form.Fields[2].Type != "select" || form.Fields[3].Type != "textarea" {
			t.Errorf("unexpected field types %+v", form.Fields)
		}
		if !slices.Equal(form.SubmitLabels, []string{"Continue", "Send"}) {
			t.Errorf("unexpected submit labels %v", form.SubmitLabels)
		}
	})

	t.Run("extracts images", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://clinic.test/", `<img src="/a.jpg" alt="Before and after" title="Results"><img alt="no src">`)
		if len(result.Images) != 1 {
			t.Fatalf("expected 1 image, got %d", len(result.Images))
		}
		img := result.Images[0]
		if img.Src != "https://clinic.test/a.jpg" || img.Alt != "Before and after" || img.Title != "Results" {
			t.Errorf("unexpected image %+v", img)
		}
	})

	t.Run("base href changes resolution", func(t *testing.T) {
		t.Parallel()

		result := mustParse(t, "https://clinic.test/a/b", `<html><head><base href="https://clinic.test/root/"></head>
			<body><a href="page">x</a></body></html>`)
		if !slices.Equal(result.Links, []string{"https://clinic.test/root/page"}) {
			t.Errorf("unexpected links %v", result.Links)
		}
	})
}

// TestCanonicalURL tests visited-set key normalization.
func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"https://Clinic.TEST", "https://clinic.test/"},
		{"HTTPS://clinic.test/", "https://clinic.test/"},
		{"https://clinic.test/shop/", "https://clinic.test/shop"},
		{"https://clinic.test/shop#plans", "https://clinic.test/shop"},
		{"https://clinic.test:443/a", "https://clinic.test/a"},
		{"http://clinic.test:80/a", "http://clinic.test/a"},
		{"http://clinic.test:8080/a/", "http://clinic.test:8080/a"},
		{"https://clinic.test/a/?q=1", "https://clinic.test/a?q=1"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			got, err := CanonicalURL(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}

	t.Run("relative URL is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := CanonicalURL("/shop"); err == nil {
			t.Error("expected error for relative URL")
		}
	})
}

// TestExcludePatterns tests glob matching of paths.
func TestExcludePatterns(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		pattern string
		path    string
		match   bool
	}{
		{"/admin/*", "/admin/users", true},
		{"/admin/*", "/admin", true},
		{"/admin/*", "/admin/users/1", false},
		{"/admin/**", "/admin/users/1", true},
		{"*.pdf", "/docs/guide.pdf", true},
		{"*.pdf", "/docs/guide.html", false},
		{"/api/v?", "/api/v1", true},
		{"/account/{login,logout}", "/account/logout", true},
		{"/blog/*", "/shop/item", false},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern+" "+tc.path, func(t *testing.T) {
			t.Parallel()

			compiled, err := compilePatterns([]string{tc.pattern})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := compiled[0].match(tc.path); got != tc.match {
				t.Errorf("expected %v, got %v", tc.match, got)
			}
		})
	}

	t.Run("invalid pattern", func(t *testing.T) {
		t.Parallel()

		if _, err := compilePatterns([]string{"/admin/[a"}); err == nil {
			t.Error("expected error for invalid pattern")
		}
	})
}

// TestSameSite tests host comparison.
func TestSameSite(t *testing.T) {
	t.Parallel()

	if !sameSite("www.clinic.test", "clinic.test") {
		t.Error("expected www prefix to be ignored")
	}
	if !sameSite("Clinic.Test", "clinic.test") {
		t.Error("expected case-insensitive match")
	}
	if sameSite("cdn.clinic.test", "clinic.test") {
		t.Error("expected subdomain not to match")
	}
}
