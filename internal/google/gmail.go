package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Draft is the email a quote becomes.
type Draft struct {
	From    string
	To      string
	CC      string
	Subject string
	Body    string
}

// Drafter saves messages as Gmail drafts in the authenticated mailbox.
type Drafter struct {
	svc *gmail.Service

	mu      sync.Mutex
	profile string
}

func NewDrafter(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Drafter, error) {
	if ts != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service failed: %w", err)
	}
	return &Drafter{svc: svc}, nil
}

// CreateDraft saves d and returns the Gmail draft id. An empty From uses the
// mailbox's own address.
func (g *Drafter) CreateDraft(ctx context.Context, d Draft) (string, error) {
	if d.From == "" {
		from, err := g.sender(ctx)
		if err != nil {
			return "", err
		}
		d.From = from
	}

	raw, err := BuildMessage(d)
	if err != nil {
		return "", err
	}
	created, err := g.svc.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail create draft failed: %w", err)
	}
	return created.Id, nil
}

func (g *Drafter) sender(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.profile != "" {
		return g.profile, nil
	}
	profile, err := g.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail get profile failed: %w", err)
	}
	g.profile = profile.EmailAddress
	return g.profile, nil
}

// BuildMessage renders d as an RFC 822 message with a plain-text body.
func BuildMessage(d Draft) ([]byte, error) {
	if strings.TrimSpace(d.Body) == "" {
		return nil, errors.New("draft body is empty")
	}
	from, err := mail.ParseAddress(d.From)
	if err != nil {
		return nil, fmt.Errorf("parse from address failed: %w", err)
	}
	to, err := parseAddresses(d.To)
	if err != nil {
		return nil, fmt.Errorf("parse to address failed: %w", err)
	}
	if len(to) == 0 {
		return nil, errors.New("draft has no recipient")
	}
	cc, err := parseAddresses(d.CC)
	if err != nil {
		return nil, fmt.Errorf("parse cc address failed: %w", err)
	}

	builder := enmime.Builder().
		From(from.Name, from.Address).
		ToAddrs(to).
		Subject(d.Subject).
		Text([]byte(d.Body))
	if len(cc) > 0 {
		builder = builder.CCAddrs(cc)
	}
	part, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build draft message failed: %w", err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode draft message failed: %w", err)
	}
	return buf.Bytes(), nil
}

func parseAddresses(list string) ([]mail.Address, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parsed, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, err
	}
	out := make([]mail.Address, len(parsed))
	for i, a := range parsed {
		out[i] = *a
	}
	return out, nil
}
