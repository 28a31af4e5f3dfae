package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/applyflow/applyflow/internal/core/domain"
)

// applicationQuery narrows the unread listing to likely job applications
// carrying a résumé.
const applicationQuery = `is:unread has:attachment {filename:pdf OR filename:docx} {"job application" OR "applying for" OR resume OR cv}`

var addressPattern = regexp.MustCompile(`<([^>]+)>`)

// Config holds the Gmail account credentials. Token acquisition is out of
// scope; a previously issued refresh token is consumed as-is.
type Config struct {
	Address      string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// GmailSource implements Source over the Gmail REST API.
type GmailSource struct {
	svc     *gmail.Service
	address string
}

// NewGmailSource builds an authenticated Gmail client.
func NewGmailSource(ctx context.Context, cfg Config) (*GmailSource, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailModifyScope},
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to init gmail service: %w", err)
	}
	return &GmailSource{svc: svc, address: cfg.Address}, nil
}

func (s *GmailSource) SelfAddress() string { return s.address }

func (s *GmailSource) FetchUnreadApplications(ctx context.Context) ([]domain.MessageRef, error) {
	resp, err := s.svc.Users.Messages.List("me").Q(applicationQuery).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list unread applications: %w", err)
	}

	refs := make([]domain.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, domain.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

func (s *GmailSource) FetchThreadMessages(ctx context.Context, threadID string) ([]domain.MessageRef, error) {
	thread, err := s.svc.Users.Threads.Get("me", threadID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}

	refs := make([]domain.MessageRef, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		refs = append(refs, domain.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

func (s *GmailSource) FetchContent(ctx context.Context, messageID string) (*domain.EmailMessage, error) {
	msg, err := s.svc.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	if msg.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", messageID)
	}

	return &domain.EmailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  headerValue(msg.Payload.Headers, "Subject"),
		Sender:   ExtractAddress(headerValue(msg.Payload.Headers, "From")),
		Body:     extractBody(msg.Payload),
	}, nil
}

func (s *GmailSource) SaveAttachment(ctx context.Context, messageID string) (string, error) {
	msg, err := s.svc.Users.Messages.Get("me", messageID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	if msg.Payload == nil {
		return "", nil
	}

	for _, part := range msg.Payload.Parts {
		name := strings.ToLower(part.Filename)
		if part.Filename == "" ||
			(!strings.HasSuffix(name, ".pdf") && !strings.HasSuffix(name, ".docx")) {
			continue
		}
		if part.Body == nil || part.Body.AttachmentId == "" {
			continue
		}

		att, err := s.svc.Users.Messages.Attachments.
			Get("me", messageID, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to fetch attachment: %w", err)
		}

		data, err := decodeWebSafe(att.Data)
		if err != nil {
			return "", fmt.Errorf("failed to decode attachment: %w", err)
		}

		f, err := os.CreateTemp("", "resume_*"+filepath.Ext(part.Filename))
		if err != nil {
			return "", fmt.Errorf("failed to create temp file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write attachment: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return f.Name(), nil
	}
	return "", nil
}

func (s *GmailSource) MarkConsumed(ctx context.Context, messageID string) error {
	_, err := s.svc.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", messageID, err)
	}
	return nil
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ExtractAddress pulls the bare address out of a From header like
// `Jane Roe <jane@example.com>`; headers without brackets pass through.
func ExtractAddress(header string) string {
	if m := addressPattern.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return header
}

// extractBody walks the MIME tree collecting text/plain parts.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		data, err := decodeWebSafe(payload.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}

	var b strings.Builder
	for _, part := range payload.Parts {
		b.WriteString(extractBody(part))
	}
	return b.String()
}

func decodeWebSafe(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
