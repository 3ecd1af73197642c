package worker

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// notifier posts sync summaries to a Discord channel. Everything about
// it is optional: no session or no channel means notifications are
// silently skipped.
type notifier struct {
	session   *discordgo.Session
	channelID string
	logger    *slog.Logger
}

func newNotifier(session *discordgo.Session, channelID string, logger *slog.Logger) *notifier {
	if session == nil || channelID == "" {
		return nil
	}
	return &notifier{session: session, channelID: channelID, logger: logger}
}

// SyncComplete announces a finished competitor sync.
func (n *notifier) SyncComplete(competitorName string, fetched, resolved int) {
	msg := fmt.Sprintf("Sync complete for **%s**: %d ads fetched, %d media resolved",
		competitorName, fetched, resolved)

	if _, err := n.session.ChannelMessageSend(n.channelID, msg); err != nil {
		n.logger.Warn("Failed to send sync notification", "error", err)
	}
}
