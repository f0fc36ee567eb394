package tui

import "strings"

// Command is a parsed ':' prompt entry.
type Command struct {
	Name string
	Args string
}

// commandNames are the completions offered by the prompt.
var commandNames = []string{"chat", "faq", "help", "image", "quit", "refresh", "search", "view"}

var commandAliases = map[string]string{
	"q":   "quit",
	"h":   "help",
	"img": "image",
	"r":   "refresh",
}

// ParseCommand parses prompt input (without the leading ':'). Aliases are
// resolved to their full command name.
func ParseCommand(input string) Command {
	input = strings.TrimPrefix(strings.TrimSpace(input), ":")
	name, args, _ := strings.Cut(input, " ")
	name = strings.ToLower(name)
	if full, ok := commandAliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}
