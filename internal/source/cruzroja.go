package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listado-engine/internal/domain"
)

// CruzRoja scans the Mexican Red Cross home page for volunteering and
// social-service anchors.
type CruzRoja struct {
	BaseURL string
	hc      *http.Client
}

func NewCruzRoja() *CruzRoja {
	return &CruzRoja{BaseURL: "https://cruzrojamexicana.org.mx", hc: newHTTPClient()}
}

func (s *CruzRoja) Name() string { return "cruz_roja" }

func (s *CruzRoja) Fetch(ctx context.Context, _ map[string]string) ([]domain.RawRecord, error) {
	pageURL := s.BaseURL + "/"
	doc, err := fetchDoc(ctx, s.hc, pageURL)
	if err != nil {
		return nil, err
	}

	images := pageImages(doc, s.BaseURL)
	keywords := []string{"volunt", "servicio social", "unete", "únete"}

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
			domain.KeyOrg:      "Cruz Roja Mexicana",
			domain.KeyRole:     role,
			domain.KeyLocation: "México",
			domain.KeyNeed:     "salud / emergencias",
			domain.KeyHours:    "variable",
			domain.KeyScore:    0.7,
			domain.KeySource:   pageURL,
			domain.KeyLink:     absURL(s.BaseURL, href),
			domain.KeyImages:   images,
			domain.KeyPostedAt: time.Now().Format(time.RFC3339),
		})
		return true
	})

	return out, nil
}
