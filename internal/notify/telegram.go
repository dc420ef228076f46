// Package notify posts roster announcements to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/albapepper/brawl-club/internal/provider"
)

// sender is the part of *tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram announces birthdays and departures to one chat.
type Telegram struct {
	bot    sender
	chatID int64
	logger *slog.Logger
}

// NewTelegram authenticates the bot token and returns an announcer for chatID.
func NewTelegram(token string, chatID int64, logger *slog.Logger) (*Telegram, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	b.Debug = false
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Telegram announcer ready", "bot", b.Self.UserName, "chat_id", chatID)
	return &Telegram{bot: b, chatID: chatID, logger: logger}, nil
}

// AnnounceBirthdays posts the month's birthdays. Nothing is sent for an empty
// list.
func (t *Telegram) AnnounceBirthdays(ctx context.Context, members []provider.Member, month time.Month) error {
	if len(members) == 0 {
		return nil
	}
	return t.send(ctx, FormatBirthdays(members, month))
}

// AnnounceDepartures posts the members that left during a sync.
func (t *Telegram) AnnounceDepartures(ctx context.Context, former []provider.Member) error {
	if len(former) == 0 {
		return nil
	}
	return t.send(ctx, FormatDepartures(former))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.logger.Debug("Telegram message sent", "chat_id", t.chatID, "bytes", len(text))
	return nil
}

// --------------------------------------------------------------------------
// Message formatting
// --------------------------------------------------------------------------

// FormatBirthdays renders one line per member, ordered as given.
func FormatBirthdays(members []provider.Member, month time.Month) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎂 Birthdays in %s\n", month)
	for _, m := range members {
		day := ""
		if m.Birthday != nil {
			day = fmt.Sprintf(" on the %d%s", m.Birthday.Day(), ordinalSuffix(m.Birthday.Day()))
		}
		if m.RealName != "" && m.RealName != m.Name {
			fmt.Fprintf(&b, "• %s (%s)%s\n", m.RealName, m.Name, day)
		} else {
			fmt.Fprintf(&b, "• %s%s\n", m.Name, day)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDepartures renders one line per former member with the club they left.
func FormatDepartures(former []provider.Member) string {
	var b strings.Builder
	if len(former) == 1 {
		b.WriteString("👋 1 member left the club\n")
	} else {
		fmt.Fprintf(&b, "👋 %d members left the club\n", len(former))
	}
	for _, m := range former {
		club := m.ClubName
		if club == "" {
			club = m.ClubTag
		}
		fmt.Fprintf(&b, "• %s %s, %d trophies", m.Name, m.Tag, m.Trophies)
		if club != "" {
			fmt.Fprintf(&b, " (%s)", club)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func ordinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
