package notifier

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Notifier announces engine lifecycle changes to the guidance staff channel.
type Notifier interface {
	NotifyWindowOpened(startDate, endDate time.Time, capacityPerDay int) error
	NotifyWindowClosed(reason string) error
	NotifySweepSummary(cancelled, closed int, windowClosed bool) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) send(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}
	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func (n *DiscordNotifier) NotifyWindowOpened(startDate, endDate time.Time, capacityPerDay int) error {
	return n.send(fmt.Sprintf(
		"📅 Exam registration window opened: %s – %s (capacity %d/day)",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), capacityPerDay,
	))
}

func (n *DiscordNotifier) NotifyWindowClosed(reason string) error {
	msg := "🚪 Exam registration window closed"
	if reason != "" {
		msg += ": " + reason
	}
	return n.send(msg)
}

func (n *DiscordNotifier) NotifySweepSummary(cancelled, closed int, windowClosed bool) error {
	msg := fmt.Sprintf("🧹 Sweep finished: %d no-shows cancelled, %d sessions closed", cancelled, closed)
	if windowClosed {
		msg += ", registration window closed"
	}
	return n.send(msg)
}
