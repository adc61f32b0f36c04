package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/belfry-bio/belfry/internal/config"
	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.NotifyConfig
		wantType string
		wantErr  bool
	}{
		{name: "empty platform logs", cfg: config.NotifyConfig{}, wantType: "*notify.LogNotifier"},
		{
			name:     "slack",
			cfg:      config.NotifyConfig{Platform: "slack", Token: "xoxb-1", ChannelID: "C1"},
			wantType: "*notify.Slack",
		},
		{
			name:     "discord",
			cfg:      config.NotifyConfig{Platform: "discord", Token: "t", ChannelID: "123"},
			wantType: "*notify.Discord",
		},
		{name: "unknown platform", cfg: config.NotifyConfig{Platform: "pager"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := FromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			// Spot-check the concrete type name.
			got := typeName(n)
			if got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *LogNotifier:
		return "*notify.LogNotifier"
	case *Slack:
		return "*notify.Slack"
	case *Discord:
		return "*notify.Discord"
	default:
		return "unknown"
	}
}

// --- Slack ---

type mockSlackClient struct {
	channelID string
	options   int
	err       error
}

func (m *mockSlackClient) PostMessageContext(_ context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.channelID = channelID
	m.options = len(options)
	return "", "", m.err
}

func TestSlack_Notify(t *testing.T) {
	mock := &mockSlackClient{}
	s := &Slack{client: mock, channelID: "C042"}

	err := s.Notify(context.Background(), Event{Title: "Report completed", Severity: SeveritySuccess})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.channelID != "C042" {
		t.Errorf("channelID = %q, want C042", mock.channelID)
	}
	if mock.options == 0 {
		t.Error("expected message options")
	}
}

func TestSlack_NotifyError(t *testing.T) {
	mock := &mockSlackClient{err: errors.New("rate limited")}
	s := &Slack{client: mock, channelID: "C042"}

	err := s.Notify(context.Background(), Event{Title: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "slack post") {
		t.Errorf("error = %q", err)
	}
}

// --- Discord ---

type mockDiscordSession struct {
	channelID string
	embed     *discordgo.MessageEmbed
	err       error
}

func (m *mockDiscordSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channelID = channelID
	m.embed = embed
	return &discordgo.Message{}, m.err
}

func TestDiscord_Notify(t *testing.T) {
	mock := &mockDiscordSession{}
	d := &Discord{sess: mock, channelID: "987"}

	err := d.Notify(context.Background(), Event{
		Title:    "Report failed",
		Body:     "line 4: naked name",
		Severity: SeverityError,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.channelID != "987" {
		t.Errorf("channelID = %q, want 987", mock.channelID)
	}
	if mock.embed == nil || mock.embed.Title != "Report failed" {
		t.Errorf("embed = %+v", mock.embed)
	}
	if mock.embed.Color != 0xd00000 {
		t.Errorf("Color = %#x, want error color", mock.embed.Color)
	}
}

func TestDiscord_NotifyError(t *testing.T) {
	mock := &mockDiscordSession{err: errors.New("missing access")}
	d := &Discord{sess: mock, channelID: "987"}

	if err := d.Notify(context.Background(), Event{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestColorInt(t *testing.T) {
	tests := []struct {
		hex  string
		want int
	}{
		{"#36a64f", 0x36a64f},
		{"#d00000", 0xd00000},
		{"bogus", 0},
	}
	for _, tt := range tests {
		if got := colorInt(tt.hex); got != tt.want {
			t.Errorf("colorInt(%q) = %#x, want %#x", tt.hex, got, tt.want)
		}
	}
}
