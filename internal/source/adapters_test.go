package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"listado-engine/internal/domain"
)

func TestCruzRojaHarvestsVolunteerAnchors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head>
			<meta property="og:image" content="/banner.jpg">
		</head><body>
			<a href="/voluntariado">Únete como voluntario</a>
			<a href="/donar">Donar ahora</a>
			<a href="/servicio">Servicio Social</a>
		</body></html>`))
	}))
	defer srv.Close()

	s := NewCruzRoja()
	s.BaseURL = srv.URL

	records, err := s.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	require.Equal(t, "Cruz Roja Mexicana", first.Str(domain.KeyOrg))
	require.Equal(t, srv.URL+"/voluntariado", first.Link())
	require.InDelta(t, 0.7, first.Float(domain.KeyScore, 0), 1e-9)
	require.Contains(t, first.StrList(domain.KeyImages), srv.URL+"/banner.jpg")
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestPageImagesResolvesAgainstBase(t *testing.T) {
	doc := parseHTML(t, `<html><head>
		<meta property="og:image" content="/og.png">
	</head><body>
		<img src="relative/photo.jpg">
		<img src="https://cdn.example/abs.jpg">
		<img src="https://cdn.example/abs.jpg">
	</body></html>`)

	got := pageImages(doc, "https://example.org")
	require.Equal(t, []string{
		"https://example.org/og.png",
		"https://example.org/relative/photo.jpg",
		"https://cdn.example/abs.jpg",
	}, got)
}

func TestCruzRojaNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewCruzRoja()
	s.BaseURL = srv.URL

	_, err := s.Fetch(context.Background(), nil)
	require.Error(t, err)
}

func TestUNOnlineCollectsRemoteOpportunities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
			<a href="/es/opportunity/1234">Desarrollo de sitio web</a>
			<a href="/es/about">Acerca de</a>
			<a href="/es/opportunity/5678">Análisis de datos</a>
		</body></html>`))
	}))
	defer srv.Close()

	s := NewUNOnline()
	s.BaseURL = srv.URL

	records, err := s.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	links := map[string]bool{}
	for _, r := range records {
		require.Equal(t, "UN Online Volunteering", r.Str(domain.KeyOrg))
		require.Equal(t, "remoto", r.Str(domain.KeyLocation))
		links[r.Link()] = true
	}
	require.True(t, links[srv.URL+"/es/opportunity/1234"])
	require.True(t, links[srv.URL+"/es/opportunity/5678"])
}

func TestGobMXPartialResultWhenPortalDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sre/acciones-y-programas/voluntariado" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body><h1>Voluntariado</h1></body></html>`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := NewGobMX()
	s.BaseURL = srv.URL

	records, err := s.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.InDelta(t, 0.8, records[0].Float(domain.KeyScore, 0), 1e-9)
}

func TestExtractAlertLinksPrefersAnchorsAndDedups(t *testing.T) {
	body := `<html><body>
		<a href="https://example.org/listing/1?x=1&amp;y=2">Ver oportunidad</a>
		<p>También: https://example.org/listing/2.</p>
		<a href="https://example.org/listing/1?x=1&amp;y=2">otra vez</a>
	</body></html>`

	links := extractAlertLinks(body)
	require.Contains(t, links, "https://example.org/listing/1?x=1&y=2")
	require.Contains(t, links, "https://example.org/listing/2")

	seen := map[string]int{}
	for _, l := range links {
		seen[l]++
	}
	require.Equal(t, 1, seen["https://example.org/listing/1?x=1&y=2"])
}
