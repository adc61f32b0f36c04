package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts events to a Discord channel as embeds. The REST API needs no
// open gateway connection for sending.
type Discord struct {
	sess      discordSession
	channelID string
}

// NewDiscord creates a Discord notifier for the given bot token and channel.
func NewDiscord(botToken, channelID string) (*Discord, error) {
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{sess: sess, channelID: channelID}, nil
}

// Notify implements Notifier.
func (d *Discord) Notify(_ context.Context, evt Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		Description: evt.Body,
		Color:       colorInt(severityColor(evt.Severity)),
	}
	if _, err := d.sess.ChannelMessageSendEmbed(d.channelID, embed); err != nil {
		return fmt.Errorf("notify: discord send to %s: %w", d.channelID, err)
	}
	return nil
}

// colorInt converts a "#rrggbb" hint to the integer Discord expects.
func colorInt(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
