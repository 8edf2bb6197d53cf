package commands

import (
	"strings"

	"github.com/goliatone/go-lessons/internal/logging"
	"github.com/goliatone/go-lessons/pkg/interfaces"
)

const commandModuleRoot = "lessons.commands"

// Command module names used for handler loggers.
const (
	ModuleIndex  = "index"
	ModuleExport = "export"
)

// CommandLogger returns the logger for handlers of one command module, named
// lessons.commands.<module> and tagged with the module. An empty module logs
// under "core".
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.ToLower(strings.TrimSpace(module))
	if name == "" {
		name = "core"
	}
	return logging.WithFields(logging.ModuleLogger(provider, commandModuleRoot+"."+name), map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
