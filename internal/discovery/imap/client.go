// Package imap scans an IMAP mailbox for new messages, extracts
// attachments matching the configured filters, and turns each into a
// pending Job, mirroring what the local directory scanner does for
// filesystem sources.
package imap

import (
	"fmt"
	"io"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/iperka/paporg-sub001/internal/config"
)

// Dial opens a connection to cfg's server, preferring implicit TLS
// when configured.
func Dial(cfg config.IMAPSourceConfig) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if cfg.TLS {
		return client.DialTLS(addr, nil)
	}
	return client.Dial(addr)
}

// Login authenticates c using cfg's auth type: a plain password, or a
// SASL XOAUTH2 exchange against an already-obtained access token.
func Login(c *client.Client, cfg config.IMAPSourceConfig, credential string) error {
	switch cfg.AuthType {
	case config.IMAPAuthOAuth2:
		return c.Authenticate(sasl.NewXoauth2Client(cfg.Username, credential))
	default:
		return c.Login(cfg.Username, credential)
	}
}

// ExamineFolder opens folder read-only and returns its UIDVALIDITY, so
// callers can detect a folder that was recreated since the last scan.
func ExamineFolder(c *client.Client, folder string) (uint32, error) {
	mbox, err := c.Select(folder, true)
	if err != nil {
		return 0, fmt.Errorf("examining folder %s: %w", folder, err)
	}
	return mbox.UidValidity, nil
}

// SearchSinceUID returns every UID strictly greater than lastUID.
func SearchSinceUID(c *client.Client, lastUID uint32) ([]uint32, error) {
	criteria := goimap.NewSearchCriteria()
	uidSet := new(goimap.SeqSet)
	uidSet.AddRange(lastUID+1, 0)
	criteria.Uid = uidSet
	return c.UidSearch(criteria)
}

// SearchSinceDate returns every UID for a message received on or
// after since.
func SearchSinceDate(c *client.Client, since time.Time) ([]uint32, error) {
	criteria := goimap.NewSearchCriteria()
	criteria.Since = since
	return c.UidSearch(criteria)
}

// FetchRaw downloads the full RFC 822 body for each UID in uids
// without marking any message \Seen.
func FetchRaw(c *client.Client, uids []uint32) (map[uint32][]byte, error) {
	if len(uids) == 0 {
		return map[uint32][]byte{}, nil
	}

	seqset := new(goimap.SeqSet)
	for _, uid := range uids {
		seqset.AddNum(uid)
	}

	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{section.FetchItem(), goimap.FetchUid}

	messages := make(chan *goimap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	result := make(map[uint32][]byte, len(uids))
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("reading message uid %d: %w", msg.Uid, err)
		}
		result[msg.Uid] = raw
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}
	return result, nil
}
