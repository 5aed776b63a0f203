package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listado-engine/internal/domain"
)

// Techo scans the TECHO México page for participation anchors.
type Techo struct {
	BaseURL string
	hc      *http.Client
}

func NewTecho() *Techo {
	return &Techo{BaseURL: "https://techo.org", hc: newHTTPClient()}
}

func (s *Techo) Name() string { return "techo" }

func (s *Techo) Fetch(ctx context.Context, _ map[string]string) ([]domain.RawRecord, error) {
	pageURL := s.BaseURL + "/mexico"
	doc, err := fetchDoc(ctx, s.hc, pageURL)
	if err != nil {
		return nil, err
	}

	images := pageImages(doc, s.BaseURL)
	keywords := []string{"volunt", "participa", "unete", "únete"}

	var out []domain.RawRecord
	doc.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		if i >= 200 {
			return false
		}
		text := strings.ToLower(cleanText(a.Text()))
		href, _ := a.Attr("href")
		if href == "" || !anyContains(text, keywords) {
			return true
		}
		role := cleanText(a.Text())
		if role == "" {
			role = "Voluntariado"
		}
		out = append(out, domain.RawRecord{
			domain.KeyOrg:      "TECHO México",
			domain.KeyRole:     role,
			domain.KeyLocation: "México",
			domain.KeyNeed:     "social / comunitario",
			domain.KeyHours:    "variable",
			domain.KeyScore:    0.66,
			domain.KeySource:   pageURL,
			domain.KeyLink:     absURL(s.BaseURL, href),
			domain.KeyImages:   images,
			domain.KeyPostedAt: time.Now().Format(time.RFC3339),
		})
		return true
	})

	return out, nil
}
