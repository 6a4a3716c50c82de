package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/util"
)

const (
	TelegramAPI = "https://api.telegram.org"
	// MaxMessageLen stays under Telegram's 4096 character limit.
	MaxMessageLen = 4000
	// header shows at most this many keywords
	headerKeywords = 3
)

type Telegram struct {
	Token   string
	ChatID  string
	BaseURL string
	HTTP    *http.Client
	// Pause is the gap between chunks.
	Pause time.Duration
	Log   zerolog.Logger
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewTelegram(token, chatID string, log zerolog.Logger) *Telegram {
	return &Telegram{
		Token:   token,
		ChatID:  chatID,
		BaseURL: TelegramAPI,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Pause:   500 * time.Millisecond,
		Log:     log,
	}
}

type sendMessageReq struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResp struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends the postings as one or more Markdown messages. Each message
// is tried once; the first failure stops the rest.
func (t *Telegram) Notify(ctx context.Context, postings []domain.Posting, meta RunMeta) error {
	if len(postings) == 0 {
		t.Log.Info().Msg("no new postings to notify")
		return nil
	}
	msgs := Messages(postings, meta)
	for i, msg := range msgs {
		if i > 0 && t.Pause > 0 {
			if err := t.sleep(ctx, t.Pause); err != nil {
				return err
			}
		}
		if err := t.send(ctx, msg); err != nil {
			return fmt.Errorf("telegram message %d/%d: %w", i+1, len(msgs), err)
		}
	}
	t.Log.Info().Int("messages", len(msgs)).Int("postings", len(postings)).Msg("telegram notification sent")
	return nil
}

func (t *Telegram) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep != nil {
		return t.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Telegram) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageReq{
		ChatID:                t.ChatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = TelegramAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/bot"+t.Token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	hc := t.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		// the url embeds the bot token
		return fmt.Errorf("send: %s", strings.ReplaceAll(err.Error(), t.Token, "<token>"))
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		var r apiResp
		if json.Unmarshal(b, &r) == nil && r.Description != "" {
			return fmt.Errorf("telegram api HTTP %d: %s", resp.StatusCode, r.Description)
		}
		return fmt.Errorf("telegram api HTTP %d", resp.StatusCode)
	}
	return nil
}

// Messages renders the header and one block per posting, starting a new
// message whenever the next block would pass MaxMessageLen.
func Messages(postings []domain.Posting, meta RunMeta) []string {
	at := meta.At
	if at.IsZero() {
		at = time.Now()
	}

	var header strings.Builder
	fmt.Fprintf(&header, "🔔 *%d New Job(s) Found!*\n", len(postings))
	fmt.Fprintf(&header, "📅 %s\n", at.Format("2006-01-02 15:04"))
	fmt.Fprintf(&header, "🔍 Keywords: %s\n", escapeMarkdown(strings.Join(util.Cap(meta.Keywords, headerKeywords), ", ")))
	header.WriteString(strings.Repeat("─", 30) + "\n\n")

	var msgs []string
	cur := header.String()
	for i, p := range postings {
		block := postingBlock(i+1, p)
		if len(cur)+len(block) > MaxMessageLen && cur != "" {
			msgs = append(msgs, cur)
			cur = ""
		}
		cur += block
	}
	if cur != "" {
		msgs = append(msgs, cur)
	}
	return msgs
}

func postingBlock(n int, p domain.Posting) string {
	title := orUnknown(util.Truncate(p.Title, 100))
	company := util.Truncate(p.Company, 50)
	source := orUnknown(p.Source)

	var b strings.Builder
	fmt.Fprintf(&b, "*%d. %s*\n", n, escapeMarkdown(title))
	if company != "" {
		fmt.Fprintf(&b, "🏢 %s\n", escapeMarkdown(company))
	}
	fmt.Fprintf(&b, "🌐 %s\n", escapeMarkdown(source))
	fmt.Fprintf(&b, "🔗 [Apply Here](%s)\n\n", strings.ReplaceAll(p.URL, ")", "%29"))
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
