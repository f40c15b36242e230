package indeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		position string
		location string
		want     string
	}{
		{
			name:     "position and city with state code",
			position: "Software Engineer",
			location: "Austin, TX",
			want:     "jobs?q=Software+Engineer+&l=Austin%2C+TX&fromage=3",
		},
		{
			name:     "multi-word city",
			position: "Data Analyst",
			location: "New York City, NY",
			want:     "jobs?q=Data+Analyst+&l=New+York+City%2C+NY&fromage=3",
		},
		{
			name:     "city only",
			position: "Developer",
			location: "Austin",
			want:     "jobs?q=Developer+&l=Austin&fromage=3",
		},
		{
			name:     "position only",
			position: "Developer",
			location: "",
			want:     "jobs?q=Developer+&fromage=3",
		},
		{
			name:     "location only",
			position: "",
			location: "Austin, TX",
			want:     "jobs?&l=Austin%2C+TX&fromage=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.position, tt.location); got != tt.want {
				t.Errorf("buildQuery(%q, %q) = %q, want %q", tt.position, tt.location, got, tt.want)
			}
		})
	}
}

func anchorPage(anchors ...string) string {
	return "<html><body>" + strings.Join(anchors, "\n") + "</body></html>"
}

func TestScrape_EmptyInputsSkipFetch(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	c := NewCrawler(Config{BaseURL: srv.URL})
	listings, err := c.Scrape(context.Background(), "   ", " ")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("Scrape() = %v, want empty", listings)
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}

func TestScrape_QueryURL(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, anchorPage())
	}))
	defer srv.Close()

	c := NewCrawler(Config{BaseURL: srv.URL})
	if _, err := c.Scrape(context.Background(), "Software Engineer", "Austin, TX"); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	for _, want := range []string{"q=Software+Engineer+", "l=Austin%2C+TX", "fromage=3"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q does not contain %q", gotQuery, want)
		}
	}
}

func TestScrape_CapAndOrder(t *testing.T) {
	var anchors []string
	for i := 0; i < 15; i++ {
		anchors = append(anchors, fmt.Sprintf(`<a href="/rc/clk?jk=%d">Job %d</a>`, i, i))
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, anchorPage(anchors...))
	}))
	defer srv.Close()

	c := NewCrawler(Config{BaseURL: srv.URL, LinkBaseURL: "https://www.indeed.com"})
	listings, err := c.Scrape(context.Background(), "Engineer", "")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	if len(listings) != 10 {
		t.Fatalf("Scrape() returned %d listings, want 10", len(listings))
	}
	for i, l := range listings {
		if want := fmt.Sprintf("Job %d", i); l.Title != want {
			t.Errorf("listings[%d].Title = %q, want %q (encounter order)", i, l.Title, want)
		}
		if want := fmt.Sprintf("https://www.indeed.com/rc/clk?jk=%d", i); l.URL != want {
			t.Errorf("listings[%d].URL = %q, want %q", i, l.URL, want)
		}
	}
}

func TestScrape_DedupByTitle(t *testing.T) {
	page := anchorPage(
		`<a href="/pagead/clk?id=1">Backend Engineer</a>`,
		`<a href="/rc/clk?jk=2">Backend Engineer</a>`,
		`<a href="/rc/clk?jk=3">Frontend Engineer</a>`,
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	c := NewCrawler(Config{BaseURL: srv.URL})
	listings, err := c.Scrape(context.Background(), "Engineer", "")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	if len(listings) != 2 {
		t.Fatalf("Scrape() returned %d listings, want 2", len(listings))
	}
	if !strings.Contains(listings[0].URL, "/pagead/clk?id=1") {
		t.Errorf("first occurrence did not win: %q", listings[0].URL)
	}
}

func TestScrape_IgnoresNonJobAnchors(t *testing.T) {
	page := anchorPage(
		`<a href="/about">About</a>`,
		`<a href="/cmp/some-company">Company</a>`,
		`<a href="/rc/clk?jk=1">Real Job</a>`,
		`<a>No href at all</a>`,
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	c := NewCrawler(Config{BaseURL: srv.URL})
	listings, err := c.Scrape(context.Background(), "Engineer", "")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(listings) != 1 || listings[0].Title != "Real Job" {
		t.Errorf("Scrape() = %v, want only the /rc/ anchor", listings)
	}
}

func TestScrape_NoAnchors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>nothing here</p></body></html>")
	}))
	defer srv.Close()

	c := NewCrawler(Config{BaseURL: srv.URL})
	listings, err := c.Scrape(context.Background(), "Engineer", "")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("Scrape() = %v, want empty", listings)
	}
}

func TestScrape_ClientRejected(t *testing.T) {
	for _, status := range []int{http.StatusMultipleChoices, http.StatusNotFound, http.StatusForbidden} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			var requests int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(status)
			}))
			defer srv.Close()

			c := NewCrawler(Config{BaseURL: srv.URL})
			_, err := c.Scrape(context.Background(), "Engineer", "")
			if !errors.Is(err, ErrClientRejected) {
				t.Fatalf("Scrape() error = %v, want ErrClientRejected", err)
			}
			if requests != 1 {
				t.Errorf("requests = %d, want 1 (no retries on client rejection)", requests)
			}
		})
	}
}

func TestScrape_ServerErrorRetries(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		var requests int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if requests <= 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, anchorPage(`<a href="/rc/clk?jk=1">Job</a>`))
		}))
		defer srv.Close()

		c := NewCrawler(Config{BaseURL: srv.URL})
		listings, err := c.Scrape(context.Background(), "Engineer", "")
		if err != nil {
			t.Fatalf("Scrape() error = %v", err)
		}
		if len(listings) != 1 {
			t.Errorf("Scrape() = %v, want 1 listing", listings)
		}
		if requests != 3 {
			t.Errorf("requests = %d, want 3", requests)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		var requests int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewCrawler(Config{BaseURL: srv.URL})
		_, err := c.Scrape(context.Background(), "Engineer", "")
		if !errors.Is(err, ErrServerUnavailable) {
			t.Fatalf("Scrape() error = %v, want ErrServerUnavailable", err)
		}
		if requests != 4 {
			t.Errorf("requests = %d, want 4 (initial fetch plus three retries)", requests)
		}
	})
}
