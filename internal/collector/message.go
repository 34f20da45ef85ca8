package collector

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"NewsletterDigest/internal/model"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`[ \t]+`)
)

// ReadMessage parses an RFC 5322 message into a RawMessage. The text/plain
// part is preferred; a message with only HTML is converted to markdown text.
func ReadMessage(r io.Reader) (*model.RawMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("create mail reader: %w", err)
	}

	out := &model.RawMessage{}
	if subject, err := mr.Header.Subject(); err == nil {
		out.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		out.ReceivedAt = date
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read next part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s body: %w", contentType, err)
		}
		switch {
		case contentType == "text/plain" && plain == "":
			plain = string(b)
		case contentType == "text/html" && html == "":
			html = string(b)
		}
	}

	if strings.TrimSpace(plain) != "" {
		out.Body = strings.TrimSpace(plain)
	} else {
		out.Body = HTMLToText(html)
	}
	return out, nil
}

// HTMLToText converts an HTML newsletter body to markdown text, falling back
// to tag stripping when conversion fails or yields nothing.
func HTMLToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	converted, err := md.NewConverter("", true, nil).ConvertString(html)
	if err == nil && strings.TrimSpace(converted) != "" {
		return strings.TrimSpace(converted)
	}
	return stripTags(html)
}

func stripTags(html string) string {
	text := tagRe.ReplaceAllString(html, "\n")
	text = spaceRe.ReplaceAllString(text, " ")
	replacer := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ")
	return strings.TrimSpace(replacer.Replace(text))
}
