package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything a UI
// should surface before saving.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Provider.Domains = trimList(out.Provider.Domains)
	out.Provider.Keywords = trimList(out.Provider.Keywords)
	out.Region.Tokens = trimList(out.Region.Tokens)
	out.TrustedOrigins = trimList(out.TrustedOrigins)
	out.Collect.Areas = trimList(out.Collect.Areas)
	out.Sources.Email.SearchSubjectAny = trimList(out.Sources.Email.SearchSubjectAny)

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	switch out.Cache.Backend {
	case "sqlite", "memory":
	case "":
		res.addErr("cache.backend is required (sqlite or memory)")
	default:
		res.addErr("cache.backend must be sqlite or memory, got %q", out.Cache.Backend)
	}

	if out.Provider.MaxRequestsPerSecond <= 0 {
		res.addErr("provider.max_requests_per_second must be > 0")
	}
	if out.Provider.MonthlyQuota < 0 {
		res.addErr("provider.monthly_quota must be >= 0")
	}
	if out.Provider.MonthlyQuota == 0 {
		res.addWarn("provider.monthly_quota is 0; every primary call will be refused and the scrape fallback will carry all traffic.")
	}
	if strings.TrimSpace(out.Provider.Endpoint) == "" {
		res.addErr("provider.endpoint is required")
	}
	if strings.TrimSpace(out.Fallback.Endpoint) == "" {
		res.addErr("fallback.endpoint is required")
	}

	if len(out.Region.Tokens) == 0 {
		res.addWarn("region.tokens is empty; the regional phase will match nothing and every fill goes straight to global backfill.")
	}

	for i, r := range out.Categories {
		if strings.TrimSpace(r.Name) == "" {
			res.addErr("categories[%d].name is required", i)
		}
		if len(r.Any) == 0 {
			res.addErr("categories[%d].any must have at least 1 term", i)
		}
		for j, term := range r.Any {
			if strings.TrimSpace(term) == "" {
				res.addErr("categories[%d].any[%d] cannot be empty", i, j)
			}
		}
	}

	for i, a := range out.Areas {
		if strings.TrimSpace(a.Name) == "" {
			res.addErr("areas[%d].name is required", i)
		}
		if len(a.Categories) == 0 {
			res.addErr("areas[%d].categories must have at least 1 entry", i)
		}
	}

	if out.Collect.IntervalSeconds > 0 && out.Collect.IntervalSeconds < 60 {
		res.addWarn("collect.interval_seconds is very low (%d); sources may block the scrapers.", out.Collect.IntervalSeconds)
	}
	if out.Collect.MinPer <= 0 {
		res.addWarn("collect.min_per is %d; periodic collection will gather nothing.", out.Collect.MinPer)
	}

	if out.Sources.Email.Enabled {
		if strings.TrimSpace(out.Sources.Email.IMAPHost) == "" {
			res.addErr("sources.email.imap_host is required when email is enabled")
		}
		if out.Sources.Email.IMAPPort == 0 {
			res.addErr("sources.email.imap_port is required when email is enabled")
		}
		if strings.TrimSpace(out.Sources.Email.Username) == "" {
			res.addErr("sources.email.username is required when email is enabled")
		}
		if len(out.Sources.Email.SearchSubjectAny) == 0 {
			res.addWarn("sources.email.search_subject_any is empty; the email adapter may find nothing.")
		}
	}

	return out, res
}
