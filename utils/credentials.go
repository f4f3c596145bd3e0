package utils

import (
	"context"

	"mailwarm/models"

	"github.com/sirupsen/logrus"
)

// CredentialStore resolves IMAP passwords for recipient mailboxes. Plaintext
// passwords from the environment win; otherwise the address book is consulted
// and its stored password decrypted.
type CredentialStore struct {
	fromEnv   map[string]string
	addresses *models.AddressRepository
	log       *logrus.Logger
}

func NewCredentialStore(fromEnv map[string]string, addresses *models.AddressRepository, log *logrus.Logger) *CredentialStore {
	return &CredentialStore{
		fromEnv:   fromEnv,
		addresses: addresses,
		log:       log,
	}
}

// IMAPPassword returns the password for a mailbox, reporting whether one is known
func (cs *CredentialStore) IMAPPassword(ctx context.Context, mailbox string) (string, bool) {
	if password, ok := cs.fromEnv[mailbox]; ok && password != "" {
		return password, true
	}

	addr, err := cs.addresses.FindByEmail(ctx, mailbox)
	if err != nil {
		cs.log.WithField("mailbox", mailbox).WithError(err).Error("Address lookup failed")
		return "", false
	}
	if addr == nil || addr.IMAPPassword == "" {
		return "", false
	}

	password, err := Decrypt(addr.IMAPPassword)
	if err != nil {
		cs.log.WithField("mailbox", mailbox).WithError(err).Error("Failed to decrypt IMAP password")
		return "", false
	}
	return password, true
}
