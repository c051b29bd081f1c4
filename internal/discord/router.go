package discord

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc is the signature for slash command handlers.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// commandEntry stores a command definition along with its handler.
type commandEntry struct {
	command *discordgo.ApplicationCommand
	handler HandlerFunc
}

// CommandRouter dispatches application command interactions to registered
// handlers. Keys are lowercase "command" or "command/subcommand".
type CommandRouter struct {
	mu       sync.RWMutex
	commands map[string]commandEntry

	// respond delivers rejection replies. Overridable in tests.
	respond func(s *discordgo.Session, i *discordgo.InteractionCreate, content string)
}

// NewCommandRouter creates an empty router.
func NewCommandRouter() *CommandRouter {
	return &CommandRouter{
		commands: make(map[string]commandEntry),
		respond:  RespondEphemeral,
	}
}

// RegisterCommand registers a handler for a slash command key. The cmd
// definition is used when registering top-level commands with Discord;
// subcommand entries pass nil and nest inside their parent's definition.
func (r *CommandRouter) RegisterCommand(key string, cmd *discordgo.ApplicationCommand, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(key)] = commandEntry{command: cmd, handler: handler}
}

// ApplicationCommands returns the deduplicated top-level command definitions
// for registration with the Discord API.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var cmds []*discordgo.ApplicationCommand
	for _, entry := range r.commands {
		if entry.command != nil && !seen[entry.command.Name] {
			seen[entry.command.Name] = true
			cmds = append(cmds, entry.command)
		}
	}
	return cmds
}

// Handle dispatches an interaction to the matching handler. A command the
// relay never registered gets an ephemeral rejection; an unrecognized
// subcommand of a registered command is ignored without a reply.
func (r *CommandRouter) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		slog.Debug("discord: ignoring non-command interaction", "type", i.Type)
		return
	}

	data := i.ApplicationCommandData()
	key := interactionKey(data)

	r.mu.RLock()
	entry, ok := r.commands[key]
	known := ok || r.hasCommandLocked(commandName(key))
	r.mu.RUnlock()

	if !ok {
		if known {
			slog.Debug("discord: unrecognized subcommand", "key", key)
			return
		}
		slog.Warn("discord: unknown command", "key", key)
		r.respond(s, i, "そのコマンドには対応していません")
		return
	}
	entry.handler(s, i)
}

// interactionKey builds a lowercase router key from a command interaction.
func interactionKey(data discordgo.ApplicationCommandInteractionData) string {
	key := data.Name
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		key += "/" + data.Options[0].Name
	}
	return strings.ToLower(key)
}

func commandName(key string) string {
	name, _, _ := strings.Cut(key, "/")
	return name
}

// hasCommandLocked reports whether any entry belongs to the named top-level
// command. Callers must hold r.mu.
func (r *CommandRouter) hasCommandLocked(name string) bool {
	for key := range r.commands {
		if commandName(key) == name {
			return true
		}
	}
	return false
}
