package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"mailwarm/config"
	"mailwarm/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Spam folder names vary by provider; checked in order after INBOX
var spamFolders = []string{"[Gmail]/Spam", "Spam", "Junk", "SPAM", "[Gmail]/Junk"}

// IMAPChecker inspects recipient mailboxes over IMAP to detect inbox vs spam
// placement, and performs the simulated human interactions (mark read, move
// to folder) on delivered messages.
type IMAPChecker struct {
	cfg config.IMAPConfig
}

func NewIMAPChecker(cfg config.IMAPConfig) *IMAPChecker {
	return &IMAPChecker{cfg: cfg}
}

func (c *IMAPChecker) dial(mailbox, password string) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	var imapClient *client.Client
	var err error
	if c.cfg.UseSSL {
		imapClient, err = client.DialTLS(addr, &tls.Config{ServerName: c.cfg.Host})
	} else {
		imapClient, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := imapClient.Login(mailbox, password); err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("IMAP login failed for %s: %w", mailbox, err)
	}
	return imapClient, nil
}

// Check reports where the message with the given subject landed. The search
// keys on subject plus the sent-after date because relay message IDs are not
// reliably preserved in mailbox headers.
func (c *IMAPChecker) Check(ctx context.Context, mailbox, password string, sentAfter time.Time, subject string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	imapClient, err := c.dial(mailbox, password)
	if err != nil {
		return "", err
	}
	defer imapClient.Logout()

	found, err := c.searchFolder(imapClient, "INBOX", sentAfter, subject)
	if err != nil {
		return "", err
	}
	if found {
		return models.DeliveryInbox, nil
	}

	for _, folder := range spamFolders {
		// Folder may not exist on this provider, skip quietly
		found, err := c.searchFolder(imapClient, folder, sentAfter, subject)
		if err != nil {
			continue
		}
		if found {
			return models.DeliverySpam, nil
		}
	}

	return models.DeliveryUnknown, nil
}

func (c *IMAPChecker) searchFolder(imapClient *client.Client, folder string, sentAfter time.Time, subject string) (bool, error) {
	if _, err := imapClient.Select(folder, true); err != nil {
		return false, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	ids, err := imapClient.Search(subjectCriteria(sentAfter, subject))
	if err != nil {
		return false, fmt.Errorf("failed to search folder %s: %w", folder, err)
	}
	return len(ids) > 0, nil
}

// MarkAsRead flags the matching inbox message as seen
func (c *IMAPChecker) MarkAsRead(ctx context.Context, mailbox, password, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	imapClient, err := c.dial(mailbox, password)
	if err != nil {
		return err
	}
	defer imapClient.Logout()

	seqset, err := c.findInInbox(imapClient, subject)
	if err != nil {
		return err
	}
	if seqset == nil {
		return fmt.Errorf("message %q not found in inbox", subject)
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return imapClient.Store(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

// MoveToFolder relocates the matching inbox message to another folder
func (c *IMAPChecker) MoveToFolder(ctx context.Context, mailbox, password, folder, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	imapClient, err := c.dial(mailbox, password)
	if err != nil {
		return err
	}
	defer imapClient.Logout()

	seqset, err := c.findInInbox(imapClient, subject)
	if err != nil {
		return err
	}
	if seqset == nil {
		return fmt.Errorf("message %q not found in inbox", subject)
	}

	return imapClient.Move(seqset, folder)
}

func (c *IMAPChecker) findInInbox(imapClient *client.Client, subject string) (*imap.SeqSet, error) {
	if _, err := imapClient.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Subject", subject)
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search inbox: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids[0])
	return seqset, nil
}

func subjectCriteria(sentAfter time.Time, subject string) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	// SINCE has date granularity only, so back up a day to avoid missing
	// messages sent late in the recipient's local day
	criteria.Since = sentAfter.Add(-24 * time.Hour)
	if subject != "" {
		criteria.Header.Add("Subject", subject)
	}
	return criteria
}
