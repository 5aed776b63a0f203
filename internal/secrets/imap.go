package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

func imapAccount(username string) string { return "imap:" + username }

// IMAPPassword resolves the mailbox credential for the email-alert source:
// keyring first, then LISTADO_IMAP_PASSWORD.
func IMAPPassword(username string) string {
	if strings.TrimSpace(username) != "" {
		if pw, err := keyring.Get(KeyringService, imapAccount(username)); err == nil && pw != "" {
			return pw
		}
	}
	return os.Getenv("LISTADO_IMAP_PASSWORD")
}

func SetIMAPPassword(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("imap username is empty")
	}
	if password == "" {
		return errors.New("imap password is empty")
	}
	return keyring.Set(KeyringService, imapAccount(username), password)
}
