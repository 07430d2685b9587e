package models

import "strings"

// CommandType enumerates supported WhatsApp command categories.
type CommandType string

const (
	CommandRation  CommandType = "ration"
	CommandPens    CommandType = "pens"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed farmer instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(message)))
	cmd := Command{Raw: message, Type: CommandUnknown}

	if len(tokens) == 0 {
		return cmd
	}

	switch head := strings.TrimPrefix(tokens[0], "/"); head {
	case string(CommandRation), "feed":
		cmd.Type = CommandRation
	case string(CommandPens):
		cmd.Type = CommandPens
	case string(CommandHelp), "aide":
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
