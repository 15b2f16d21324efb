package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/set-night/txrollup/internal/config"
	"github.com/set-night/txrollup/internal/service"
)

type Topic string

const (
	TopicError  Topic = "error"
	TopicReport Topic = "report"
)

// Notifier posts flush outcomes to an operator chat, one forum topic per
// message kind. Sending is best-effort: failures are only logged.
type Notifier struct {
	sender MessageSender
	chatID int64
	topics map[Topic]int
	now    func() time.Time
}

func NewNotifier(sender MessageSender, cfg *config.Config) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: cfg.LogTelegramChatID,
		topics: map[Topic]int{
			TopicError:  cfg.LogTopicError,
			TopicReport: cfg.LogTopicReport,
		},
		now: time.Now,
	}
}

func (n *Notifier) Send(ctx context.Context, topic Topic, message string) {
	if n.chatID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, config.TelegramSendTimeout)
	defer cancel()

	if err := SendLongMessage(ctx, n.sender, n.chatID, n.topics[topic], message); err != nil {
		slog.Error("failed to send telegram notification", "topic", topic, "error", err)
	}
}

// FlushSucceeded reports a delivered period. Empty flushes are not reported.
func (n *Notifier) FlushSucceeded(ctx context.Context, r service.FlushResult) {
	if !r.Summarized {
		return
	}
	msg := fmt.Sprintf("📊 *Period Flushed*\n\n*Period:* `%s`\n*Transactions:* %d\n*Total:* %s\n*Took:* %s",
		r.Period, r.Transactions, r.TotalAmount.StringFixed(2), r.Duration.Round(time.Millisecond))
	n.Send(ctx, TopicReport, msg)
}

func (n *Notifier) FlushFailed(ctx context.Context, period string, err error) {
	msg := fmt.Sprintf("❌ *Flush Failed*\n\n*Period:* `%s`\n*Error:* %s\n*Time:* %s\n\nThe period stays buffered.",
		period, EscapeMarkdown(err.Error()), n.now().Format("2006-01-02 15:04:05"))
	n.Send(ctx, TopicError, msg)
}

// BacklogFlushed reports periods recovered by a backlog pass.
func (n *Notifier) BacklogFlushed(ctx context.Context, results []service.FlushResult) {
	var lines []string
	for _, r := range results {
		if r.Summarized {
			lines = append(lines, fmt.Sprintf("`%s` %d tx, %s", r.Period, r.Transactions, r.TotalAmount.StringFixed(2)))
		}
	}
	if len(lines) == 0 {
		return
	}
	n.Send(ctx, TopicReport, "🗂 *Backlog Flushed*\n\n"+strings.Join(lines, "\n"))
}
