// Command helmholtz-register is a one-shot tool that registers the
// /helmholtz slash command for a guild. It talks only to the Discord HTTP
// API; no gateway connection is opened. Run it once per guild, or again
// after the command schema changes.
package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/helmholtz/internal/discord/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	token := os.Getenv("DISCORD_TOKEN")
	guildID := os.Getenv("DISCORD_GUILD_ID")
	missing := false
	if token == "" {
		fmt.Fprintln(os.Stderr, "helmholtz-register: DISCORD_TOKEN is required")
		missing = true
	}
	if guildID == "" {
		fmt.Fprintln(os.Stderr, "helmholtz-register: DISCORD_GUILD_ID is required")
		missing = true
	}
	if missing {
		return 1
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmholtz-register: create session: %v\n", err)
		return 1
	}

	self, err := session.User("@me")
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmholtz-register: resolve application: %v\n", err)
		return 1
	}

	def := commands.NewPreferenceCommands(nil).Definition()
	registered, err := session.ApplicationCommandBulkOverwrite(self.ID, guildID, []*discordgo.ApplicationCommand{def})
	if err != nil {
		fmt.Fprintf(os.Stderr, "helmholtz-register: register commands: %v\n", err)
		return 1
	}

	for _, cmd := range registered {
		fmt.Printf("registered /%s (id %s)\n", cmd.Name, cmd.ID)
	}
	return 0
}
