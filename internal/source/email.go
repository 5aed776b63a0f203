package source

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"listado-engine/internal/domain"
)

// EmailAlerts scans unseen inbox messages whose subject matches one of the
// configured needles and turns the links inside into raw records. Messages
// are fetched with BODY.PEEK[] and only marked \Seen after processing.
type EmailAlerts struct {
	Addr        string
	Username    string
	Password    func() string
	Mailbox     string
	SubjectAny  []string
	MaxMessages int

	now func() time.Time
}

func NewEmailAlerts(host string, port int, username string, password func() string) *EmailAlerts {
	addr := host
	if port != 0 && !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, port)
	} else if !strings.Contains(addr, ":") {
		addr += ":993"
	}
	return &EmailAlerts{
		Addr:        addr,
		Username:    username,
		Password:    password,
		Mailbox:     "INBOX",
		MaxMessages: 50,
		now:         time.Now,
	}
}

func (s *EmailAlerts) Name() string { return "email_alerts" }

func (s *EmailAlerts) Fetch(ctx context.Context, _ map[string]string) ([]domain.RawRecord, error) {
	password := ""
	if s.Password != nil {
		password = s.Password()
	}
	if s.Addr == "" || s.Username == "" || password == "" {
		return nil, errors.New("email source needs imap host, username and password")
	}

	c, err := imapclient.DialTLS(s.Addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	defer func() { _ = c.Close() }()

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(s.Username, password).Wait(); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	defer func() {
		_ = c.Logout().Wait()
	}()

	mailbox := s.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", mailbox, err)
	}

	msgs, err := s.fetchUnseen(ctx, c)
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	processed := make([]imap.UID, 0, len(msgs))

	for _, m := range msgs {
		subject, body := parseAlertMessage(m.raw, m.subject)
		if len(s.SubjectAny) > 0 && !anyContains(strings.ToLower(subject), lowerAll(s.SubjectAny)) {
			processed = append(processed, m.uid)
			continue
		}

		for _, link := range extractAlertLinks(body) {
			out = append(out, domain.RawRecord{
				domain.KeyOrg:      m.from,
				domain.KeyRole:     subject,
				domain.KeyNeed:     "alerta por correo",
				domain.KeyScore:    0.5,
				domain.KeySource:   "imap:" + s.Username,
				domain.KeyLink:     link,
				domain.KeyPostedAt: m.date.Format(time.RFC3339),
			})
		}
		processed = append(processed, m.uid)
	}

	if err := markSeen(c, processed); err != nil {
		return out, err
	}
	return out, nil
}

type alertMessage struct {
	uid     imap.UID
	from    string
	subject string
	date    time.Time
	raw     []byte
}

func (s *EmailAlerts) fetchUnseen(ctx context.Context, c *imapclient.Client) ([]alertMessage, error) {
	max := s.MaxMessages
	if max <= 0 {
		max = 50
	}

	// Messages older than three months are never alert material.
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   s.now().AddDate(0, -3, 0),
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Newest first.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]alertMessage, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		var m alertMessage
		m.uid = buf.UID
		if buf.Envelope != nil {
			m.subject = buf.Envelope.Subject
			m.date = buf.Envelope.Date
			m.from = joinImapAddrs(buf.Envelope.From)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			m.raw = append([]byte(nil), b...)
		}
		if m.date.IsZero() {
			m.date = s.now()
		}
		out = append(out, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap mark seen: %w", err)
	}
	return nil
}

func joinImapAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}

// parseAlertMessage extracts the decoded subject and the best text body
// from a raw RFC822 message. Plain text is preferred over stripped HTML.
func parseAlertMessage(raw []byte, fallbackSubject string) (subject, body string) {
	subject = decodeEncodedWord(fallbackSubject)
	if len(raw) == 0 {
		return subject, ""
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return subject, string(raw)
	}
	if s := strings.TrimSpace(msg.Header.Get("Subject")); s != "" {
		subject = decodeEncodedWord(s)
	}

	bodyRaw, _ := io.ReadAll(io.LimitReader(msg.Body, 6<<20))
	plain, htmlPart := mimeTextParts(msg.Header, bodyRaw)
	if plain != "" {
		return subject, plain
	}
	if htmlPart != "" {
		return subject, htmlPart
	}
	return subject, string(bodyRaw)
}

func mimeTextParts(h mail.Header, body []byte) (plain, htmlPart string) {
	ct := h.Get("Content-Type")
	cte := strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))

	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return string(decodeTransfer(body, cte)), ""
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return string(decodeTransfer(body, cte)), ""
		}
		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			partCTE := strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding")))
			pMedia, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			pMedia = strings.ToLower(pMedia)

			b, _ := io.ReadAll(io.LimitReader(p, 6<<20))
			b = decodeTransfer(b, partCTE)

			switch {
			case strings.HasPrefix(pMedia, "multipart/"):
				pl, ht := mimeTextParts(mail.Header(p.Header), b)
				if len(pl) > len(plain) {
					plain = pl
				}
				if len(ht) > len(htmlPart) {
					htmlPart = ht
				}
			case strings.HasPrefix(pMedia, "text/plain"):
				if len(b) > len(plain) {
					plain = string(b)
				}
			case strings.HasPrefix(pMedia, "text/html"):
				if len(b) > len(htmlPart) {
					htmlPart = string(b)
				}
			}
		}
		return plain, htmlPart
	}

	s := decodeTransfer(body, cte)
	if strings.HasPrefix(mediaType, "text/html") {
		return "", string(s)
	}
	return string(s), ""
}

func decodeTransfer(b []byte, cte string) []byte {
	switch cte {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 6<<20))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 6<<20))
		return out
	default:
		return b
	}
}

func decodeEncodedWord(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

var (
	reAlertHref = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"'#]+)["']`)
	reAlertURL  = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// extractAlertLinks returns the unique http(s) links in a message body,
// preferring anchor hrefs when the body looks like HTML.
func extractAlertLinks(body string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(u string) {
		u = strings.TrimRight(strings.TrimSpace(html.UnescapeString(u)), ".,);:]\"'")
		if u == "" || !strings.HasPrefix(u, "http") || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	lower := strings.ToLower(body)
	if strings.Contains(lower, "<html") || strings.Contains(lower, "<a ") {
		for _, m := range reAlertHref.FindAllStringSubmatch(body, -1) {
			add(m[1])
		}
	}
	for _, u := range reAlertURL.FindAllString(body, -1) {
		add(u)
	}
	return out
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}
