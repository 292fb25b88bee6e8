package imap

import (
	"testing"

	"github.com/iperka/paporg-sub001/internal/config"
)

const sampleEmailWithAttachment = "From: sender@example.com\r\n" +
	"To: recipient@example.com\r\n" +
	"Subject: Invoice attached\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please find the invoice attached.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQKJeLjz9M=\r\n" +
	"--BOUNDARY--\r\n"

func TestExtractAttachmentsFindsMatchingAttachment(t *testing.T) {
	attachments, err := ExtractAttachments([]byte(sampleEmailWithAttachment), config.FileFilters{})
	if err != nil {
		t.Fatalf("ExtractAttachments: %v", err)
	}
	if len(attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(attachments))
	}
	if attachments[0].Filename != "invoice.pdf" {
		t.Errorf("filename = %q, want invoice.pdf", attachments[0].Filename)
	}
	if len(attachments[0].Content) == 0 {
		t.Error("expected non-empty attachment content")
	}
}

func TestExtractAttachmentsFiltersByExtension(t *testing.T) {
	attachments, err := ExtractAttachments([]byte(sampleEmailWithAttachment), config.FileFilters{Extensions: []string{"docx"}})
	if err != nil {
		t.Fatalf("ExtractAttachments: %v", err)
	}
	if len(attachments) != 0 {
		t.Fatalf("expected no attachments matching docx filter, got %d", len(attachments))
	}
}

func TestExtractAttachmentsUnboundedSizeByDefault(t *testing.T) {
	attachments, err := ExtractAttachments([]byte(sampleEmailWithAttachment), config.FileFilters{MaxSizeMB: 0})
	if err != nil {
		t.Fatalf("ExtractAttachments: %v", err)
	}
	if len(attachments) != 1 {
		t.Fatalf("MaxSizeMB=0 should mean unbounded, got %d attachments", len(attachments))
	}
}

func TestParseSinceDateRFC3339(t *testing.T) {
	got, err := parseSinceDate("2024-01-15T00:00:00Z")
	if err != nil {
		t.Fatalf("parseSinceDate: %v", err)
	}
	if got.Year() != 2024 || got.Month() != 1 || got.Day() != 15 {
		t.Errorf("got %v, want 2024-01-15", got)
	}
}

func TestParseSinceDateSimple(t *testing.T) {
	got, err := parseSinceDate("2024-01-15")
	if err != nil {
		t.Fatalf("parseSinceDate: %v", err)
	}
	if got.Year() != 2024 || got.Month() != 1 || got.Day() != 15 {
		t.Errorf("got %v, want 2024-01-15", got)
	}
}

func TestParseSinceDateInvalid(t *testing.T) {
	if _, err := parseSinceDate("not-a-date"); err == nil {
		t.Fatal("expected an error for an invalid date")
	}
}

func TestExtensionAllowedEmptyAllowListPermitsEverything(t *testing.T) {
	if !extensionAllowed("whatever.xyz", nil) {
		t.Error("empty allow-list should permit any extension")
	}
}

func TestExtensionAllowedIsCaseInsensitive(t *testing.T) {
	if !extensionAllowed("Report.PDF", []string{"pdf"}) {
		t.Error("extension matching should be case-insensitive")
	}
	if extensionAllowed("Report.PDF", []string{"docx"}) {
		t.Error("non-matching extension should be rejected")
	}
}

func TestExtOf(t *testing.T) {
	if got := extOf("file.tar.gz"); got != ".gz" {
		t.Errorf("extOf = %q, want .gz", got)
	}
	if got := extOf("noext"); got != "" {
		t.Errorf("extOf = %q, want empty", got)
	}
}
