package collector

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

const multipartMessage = `From: Research <letters@example.com>
To: me@example.com
Subject: Trade Plan Friday
Date: Fri, 16 Oct 2026 16:45:00 -0400
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Key Levels
5650: strong historical pivot

--b1
Content-Type: text/html; charset=utf-8

<p>html version</p>
--b1--
`

const htmlOnlyMessage = `From: letters@example.com
Subject: Midweek update
Date: Wed, 14 Oct 2026 18:00:00 +0000
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<h2>Key Levels</h2><p>5650: strong historical pivot</p>
`

func TestReadMessage_PrefersPlainText(t *testing.T) {
	msg, err := ReadMessage(strings.NewReader(crlf(multipartMessage)))
	require.NoError(t, err)

	assert.Equal(t, "Trade Plan Friday", msg.Subject)
	assert.True(t, msg.ReceivedAt.Equal(time.Date(2026, time.October, 16, 20, 45, 0, 0, time.UTC)))
	assert.Contains(t, msg.Body, "5650: strong historical pivot")
	assert.NotContains(t, msg.Body, "html version")
}

func TestReadMessage_HTMLOnly(t *testing.T) {
	msg, err := ReadMessage(strings.NewReader(crlf(htmlOnlyMessage)))
	require.NoError(t, err)

	assert.Equal(t, "Midweek update", msg.Subject)
	assert.Contains(t, msg.Body, "Key Levels")
	assert.Contains(t, msg.Body, "5650: strong historical pivot")
	assert.NotContains(t, msg.Body, "<p>")
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "", HTMLToText("   "))
	assert.Contains(t, HTMLToText("<p>Supports are: 5700</p>"), "Supports are: 5700")
}

func TestStripTags(t *testing.T) {
	got := stripTags("<p>5700 &amp; 5690</p>")
	assert.Equal(t, "5700 & 5690", got)
}
