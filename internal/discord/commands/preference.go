// Package commands implements the relay's slash command handlers.
package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/helmholtz/internal/discord"
	"github.com/MrWong99/helmholtz/internal/prefs"
	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

// PreferenceCommands handles the /helmholtz command group, letting members
// pick the voice gender and pitch used when their messages are spoken.
type PreferenceCommands struct {
	store *prefs.Store
}

// NewPreferenceCommands creates a PreferenceCommands handler.
func NewPreferenceCommands(store *prefs.Store) *PreferenceCommands {
	return &PreferenceCommands{store: store}
}

// Register registers the /helmholtz command and its subcommands.
func (pc *PreferenceCommands) Register(router *discord.CommandRouter) {
	def := pc.Definition()
	router.RegisterCommand("helmholtz", def, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "サブコマンドを指定してください: `/helmholtz gender`、`/helmholtz pitch`")
	})
	router.RegisterCommand("helmholtz/gender", nil, pc.handleGender)
	router.RegisterCommand("helmholtz/pitch", nil, pc.handlePitch)
}

// Definition returns the /helmholtz ApplicationCommand for registration.
func (pc *PreferenceCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "helmholtz",
		Description: "ヘルムホルツの設定をします",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "gender",
				Description: "自分の声の性別を変更します",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "voice-gender",
						Description: "男性か女性かを選択できます",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "男性", Value: string(tts.GenderMale)},
							{Name: "女性", Value: string(tts.GenderFemale)},
						},
					},
				},
			},
			{
				Name:        "pitch",
				Description: "自分の声の高さを調節します",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "value",
						Description: "声の高さです。-20から20まで指定できます",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Required:    true,
					},
				},
			},
		},
	}
}

// handleGender handles /helmholtz gender <voice-gender>.
func (pc *PreferenceCommands) handleGender(s *discordgo.Session, i *discordgo.InteractionCreate) {
	memberID := interactionMemberID(i)
	value := subcommandStringOption(i, "voice-gender")
	discord.RespondEphemeral(s, i, pc.genderReply(context.Background(), memberID, value))
}

// handlePitch handles /helmholtz pitch <value>.
func (pc *PreferenceCommands) handlePitch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	memberID := interactionMemberID(i)
	value := subcommandIntOption(i, "value")
	discord.RespondEphemeral(s, i, pc.pitchReply(context.Background(), memberID, value))
}

// genderReply validates and stores a gender choice, returning the reply
// shown to the member. Validation failures produce a user-facing message,
// never a logged error.
func (pc *PreferenceCommands) genderReply(ctx context.Context, memberID, value string) string {
	if memberID == "" {
		return "サーバー内のチャンネルから実行してください"
	}
	gender := tts.Gender(value)
	if !gender.IsValid() {
		return "male か female を指定してください"
	}
	if _, err := pc.store.Set(ctx, memberID, prefs.Update{Gender: &gender}); err != nil {
		return "設定の保存に失敗しました"
	}
	return fmt.Sprintf("<@%s> の声を%sに変更しました", memberID, genderLabel(gender))
}

// pitchReply clamps and stores a pitch value, returning the reply shown to
// the member. The confirmation always names the stored (clamped) value.
func (pc *PreferenceCommands) pitchReply(ctx context.Context, memberID string, value int64) string {
	if memberID == "" {
		return "サーバー内のチャンネルから実行してください"
	}
	pitch := float64(value)
	stored, err := pc.store.Set(ctx, memberID, prefs.Update{Pitch: &pitch})
	if err != nil {
		return "設定の保存に失敗しました"
	}
	return fmt.Sprintf("<@%s> の声の高さを %d に変更しました", memberID, int(stored.Pitch))
}

func genderLabel(g tts.Gender) string {
	if g == tts.GenderMale {
		return "男性"
	}
	return "女性"
}

// interactionMemberID resolves the invoking member, or "" for interactions
// without guild context (direct messages).
func interactionMemberID(i *discordgo.InteractionCreate) string {
	if i.Member == nil || i.Member.User == nil {
		return ""
	}
	return i.Member.User.ID
}

// subcommandStringOption returns a string option of the first subcommand.
func subcommandStringOption(i *discordgo.InteractionCreate, name string) string {
	if opt := subcommandOption(i, name); opt != nil {
		return opt.StringValue()
	}
	return ""
}

// subcommandIntOption returns an integer option of the first subcommand.
func subcommandIntOption(i *discordgo.InteractionCreate, name string) int64 {
	if opt := subcommandOption(i, name); opt != nil {
		return opt.IntValue()
	}
	return 0
}

func subcommandOption(i *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	data := i.ApplicationCommandData()
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		for _, opt := range data.Options[0].Options {
			if opt.Name == name {
				return opt
			}
		}
	}
	return nil
}
