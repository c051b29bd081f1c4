package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func commandInteraction(name, sub string) *discordgo.InteractionCreate {
	data := discordgo.ApplicationCommandInteractionData{Name: name}
	if sub != "" {
		data.Options = []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: sub, Type: discordgo.ApplicationCommandOptionSubCommand},
		}
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: data,
	}}
}

type routerRecorder struct {
	handled    []string
	rejections []string
}

func (rec *routerRecorder) handler(key string) HandlerFunc {
	return func(*discordgo.Session, *discordgo.InteractionCreate) {
		rec.handled = append(rec.handled, key)
	}
}

func newTestRouter(rec *routerRecorder) *CommandRouter {
	r := NewCommandRouter()
	r.respond = func(_ *discordgo.Session, _ *discordgo.InteractionCreate, content string) {
		rec.rejections = append(rec.rejections, content)
	}
	return r
}

func TestRouter_DispatchesSubcommand(t *testing.T) {
	t.Parallel()

	rec := &routerRecorder{}
	r := newTestRouter(rec)
	r.RegisterCommand("helmholtz/gender", nil, rec.handler("helmholtz/gender"))

	r.Handle(nil, commandInteraction("helmholtz", "gender"))

	if len(rec.handled) != 1 || rec.handled[0] != "helmholtz/gender" {
		t.Errorf("handled = %v", rec.handled)
	}
	if len(rec.rejections) != 0 {
		t.Errorf("unexpected rejection: %v", rec.rejections)
	}
}

func TestRouter_CommandNameCaseInsensitive(t *testing.T) {
	t.Parallel()

	rec := &routerRecorder{}
	r := newTestRouter(rec)
	r.RegisterCommand("Helmholtz/Gender", nil, rec.handler("gender"))

	r.Handle(nil, commandInteraction("HELMHOLTZ", "gender"))

	if len(rec.handled) != 1 {
		t.Errorf("mixed-case command not dispatched: handled = %v", rec.handled)
	}
}

func TestRouter_UnknownCommandRejected(t *testing.T) {
	t.Parallel()

	rec := &routerRecorder{}
	r := newTestRouter(rec)
	r.RegisterCommand("helmholtz/gender", nil, rec.handler("gender"))

	r.Handle(nil, commandInteraction("other", "gender"))

	if len(rec.rejections) != 1 {
		t.Fatalf("rejections = %v, want 1", rec.rejections)
	}
	if len(rec.handled) != 0 {
		t.Errorf("unknown command reached a handler")
	}
}

func TestRouter_UnknownSubcommandSilentlyIgnored(t *testing.T) {
	t.Parallel()

	rec := &routerRecorder{}
	r := newTestRouter(rec)
	r.RegisterCommand("helmholtz/gender", nil, rec.handler("gender"))

	r.Handle(nil, commandInteraction("helmholtz", "volume"))

	if len(rec.rejections) != 0 {
		t.Errorf("unrecognized subcommand produced a reply: %v", rec.rejections)
	}
	if len(rec.handled) != 0 {
		t.Errorf("unrecognized subcommand reached a handler")
	}
}

func TestRouter_IgnoresNonCommandInteractions(t *testing.T) {
	t.Parallel()

	rec := &routerRecorder{}
	r := newTestRouter(rec)
	r.RegisterCommand("helmholtz/gender", nil, rec.handler("gender"))

	r.Handle(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
	}})

	if len(rec.handled) != 0 || len(rec.rejections) != 0 {
		t.Error("non-command interaction was processed")
	}
}

func TestRouter_ApplicationCommandsDeduplicated(t *testing.T) {
	t.Parallel()

	rec := &routerRecorder{}
	r := newTestRouter(rec)
	def := &discordgo.ApplicationCommand{Name: "helmholtz"}
	r.RegisterCommand("helmholtz", def, rec.handler("root"))
	r.RegisterCommand("helmholtz/gender", nil, rec.handler("gender"))
	r.RegisterCommand("helmholtz/pitch", nil, rec.handler("pitch"))

	cmds := r.ApplicationCommands()
	if len(cmds) != 1 || cmds[0].Name != "helmholtz" {
		t.Errorf("ApplicationCommands = %v", cmds)
	}
}
