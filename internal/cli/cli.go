// Package cli parses the versecatch command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe       Command = "serve"
	CommandStart       Command = "start"
	CommandPause       Command = "pause"
	CommandStop        Command = "stop"
	CommandStatus      Command = "status"
	CommandTranslation Command = "translation"
	CommandLookup      Command = "lookup"
	CommandDevices     Command = "devices"
	CommandDoctor      Command = "doctor"
	CommandVersion     Command = "version"
	CommandHelp        Command = "help"
)

// commandArity is the number of positional arguments each command takes; -1 means one or more.
var commandArity = map[Command]int{
	CommandServe:       0,
	CommandStart:       0,
	CommandPause:       0,
	CommandStop:        0,
	CommandStatus:      0,
	CommandTranslation: 1,
	CommandLookup:      -1,
	CommandDevices:     0,
	CommandDoctor:      0,
	CommandVersion:     0,
	CommandHelp:        0,
}

type Parsed struct {
	Command     Command
	Args        []string
	ConfigPath  string
	Translation string
	ShowHelp    bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--translation":
			i++
			if i >= len(args) || strings.TrimSpace(args[i]) == "" {
				return Parsed{}, errors.New("--translation requires a code")
			}
			parsed.Translation = strings.TrimSpace(args[i])
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			arity, ok := commandArity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			switch {
			case arity < 0 && len(rest) == 0:
				return Parsed{}, fmt.Errorf("command %q requires at least one argument", arg)
			case arity >= 0 && len(rest) < arity:
				return Parsed{}, fmt.Errorf("command %q requires %d argument(s)", arg, arity)
			case arity >= 0 && len(rest) > arity:
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}

			parsed.Command = cmd
			parsed.Args = append([]string(nil), rest...)
			parsed.ShowHelp = cmd == CommandHelp
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--translation CODE] <command> [args]

Commands:
  serve                Capture speech, detect verse references, and serve control requests
  start                Start or resume listening
  pause                Pause listening and keep the transcript
  stop                 Stop listening and end the session
  status               Print state, reference, translation, and verse
  translation CODE     Switch translation and refetch the current verse
  lookup REFERENCE...  Print the verse for a reference, e.g. "John 3:16"
  devices              List available input devices
  doctor               Run configuration and environment checks
  version              Print version information
  help                 Show this help

Flags:
  --config PATH        Config file path (default: $VERSECATCH_CONFIG, then $XDG_CONFIG_HOME/versecatch/config.jsonc)
  --translation CODE   Translation for serve and lookup (default: verse.translation)
  -h, --help           Show help
  --version            Show version
`, binaryName)
}
