package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listado-engine/internal/domain"
)

// UNOnline walks a handful of UN Online Volunteering search pages focused
// on IT/software/data opportunities and collects detail links.
type UNOnline struct {
	BaseURL string
	hc      *http.Client
}

func NewUNOnline() *UNOnline {
	return &UNOnline{BaseURL: "https://www.onlinevolunteering.org", hc: newHTTPClient()}
}

func (s *UNOnline) Name() string { return "un_online" }

var unSearchTerms = []string{"software", "it", "data", "engineering"}

func (s *UNOnline) Fetch(ctx context.Context, _ map[string]string) ([]domain.RawRecord, error) {
	seen := map[string]bool{}
	var out []domain.RawRecord
	var lastErr error

	for _, term := range unSearchTerms {
		searchURL := s.BaseURL + "/es/opportunities?search=" + term
		doc, err := fetchDoc(ctx, s.hc, searchURL)
		if err != nil {
			lastErr = err
			continue
		}

		doc.Find("a[href*='/es/']").EachWithBreak(func(i int, a *goquery.Selection) bool {
			if i >= 50 {
				return false
			}
			href, _ := a.Attr("href")
			if !strings.Contains(href, "/opportunity/") && !strings.Contains(href, "/opportunities/") {
				return true
			}
			full := absURL(s.BaseURL, href)
			if seen[full] {
				return true
			}
			seen[full] = true

			title := cleanText(a.Text())
			if title == "" {
				title = "Voluntariado en línea"
			}
			out = append(out, domain.RawRecord{
				domain.KeyOrg:      "UN Online Volunteering",
				domain.KeyRole:     title,
				domain.KeyLocation: "remoto",
				domain.KeyNeed:     "it/software/data",
				domain.KeyHours:    "variable",
				domain.KeyScore:    0.6,
				domain.KeySource:   searchURL,
				domain.KeyLink:     full,
				domain.KeyPostedAt: time.Now().Format(time.RFC3339),
			})
			return true
		})

		if len(out) >= 20 {
			break
		}
	}

	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
