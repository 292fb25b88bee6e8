package imap

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/iperka/paporg-sub001/internal/config"
)

// Attachment is one extracted file from a parsed email, ready to be
// written to the discovery temp directory.
type Attachment struct {
	Filename string
	Content  []byte
}

// ExtractAttachments parses raw as an RFC 822 message and returns
// every attachment part whose filename extension and size pass
// filters. An email with no matching attachments returns an empty,
// non-nil slice rather than an error.
func ExtractAttachments(raw []byte, filters config.FileFilters) ([]Attachment, error) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	attachments := make([]Attachment, 0)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || filename == "" {
			continue
		}
		if !extensionAllowed(filename, filters.Extensions) {
			continue
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, err
		}
		if filters.MaxSizeMB > 0 && len(content) > filters.MaxSizeMB*1024*1024 {
			continue
		}

		attachments = append(attachments, Attachment{Filename: filename, Content: content})
	}
	return attachments, nil
}

// extensionAllowed reports whether filename's extension is in
// allowed, case-insensitively. An empty allow-list permits everything,
// matching the filesystem scanner's "supported format" default.
func extensionAllowed(filename string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(extOf(filename)), ".")
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "."), ext) {
			return true
		}
	}
	return false
}

func extOf(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return ""
	}
	return filename[idx:]
}
