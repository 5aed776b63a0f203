package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listado-engine/internal/domain"
)

// GobMX harvests the federal volunteering program page plus the INDESOL
// portal. The program page itself is informational, so it contributes a
// stable pointer at the UN online volunteering platform; INDESOL anchors
// are scanned for calls to participate.
type GobMX struct {
	BaseURL string
	hc      *http.Client
}

func NewGobMX() *GobMX {
	return &GobMX{BaseURL: "https://www.gob.mx", hc: newHTTPClient()}
}

func (s *GobMX) Name() string { return "gob_mx" }

func (s *GobMX) Fetch(ctx context.Context, _ map[string]string) ([]domain.RawRecord, error) {
	var out []domain.RawRecord

	programURL := s.BaseURL + "/sre/acciones-y-programas/voluntariado"
	if doc, err := fetchDoc(ctx, s.hc, programURL); err == nil {
		out = append(out, domain.RawRecord{
			domain.KeyOrg:      "Programa de Voluntarios de las Naciones Unidas",
			domain.KeyRole:     "Voluntariado en línea / internacional",
			domain.KeyLocation: "global",
			domain.KeyNeed:     "diverso",
			domain.KeyHours:    "remoto/presencial",
			domain.KeyScore:    0.8,
			domain.KeySource:   programURL,
			domain.KeyLink:     "https://www.onlinevolunteering.org/es",
			domain.KeyImages:   pageImages(doc, s.BaseURL),
			domain.KeyPostedAt: time.Now().Format(time.RFC3339),
		})
	}

	indesolURL := s.BaseURL + "/indesol"
	doc, err := fetchDoc(ctx, s.hc, indesolURL)
	if err != nil {
		// the program page alone is still a useful partial result
		if len(out) > 0 {
			return out, nil
		}
		return nil, err
	}

	images := pageImages(doc, s.BaseURL)
	keywords := []string{"volunt", "servicio social", "convocatoria", "participa"}

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
			role = "Voluntariado / Convocatoria"
		}
		out = append(out, domain.RawRecord{
			domain.KeyOrg:      "INDESOL / Gobierno de México",
			domain.KeyRole:     role,
			domain.KeyLocation: "México",
			domain.KeyNeed:     "gobierno / social",
			domain.KeyHours:    "variable",
			domain.KeyScore:    0.62,
			domain.KeySource:   indesolURL,
			domain.KeyLink:     absURL(s.BaseURL, href),
			domain.KeyImages:   images,
			domain.KeyPostedAt: time.Now().Format(time.RFC3339),
		})
		return true
	})

	return out, nil
}
