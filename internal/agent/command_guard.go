package agent

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

// blockedCommands may never be run on the model's behalf.
var blockedCommands = map[string]bool{
	"shutdown": true,
	"reboot":   true,
	"halt":     true,
	"poweroff": true,
	"init":     true,
	"mkfs":     true,
}

// sessionBuiltins act on the interactive session rather than on files.
var sessionBuiltins = map[string]bool{
	"exit": true, "fg": true, "bg": true,
}

// shells that must not be fed from a download or decoder stage.
var shells = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true, "aish": true,
}

// fetchers produce bytes that should never be executed directly.
var fetchers = map[string]bool{
	"curl": true, "wget": true, "base64": true, "xxd": true,
}

// devicePattern matches raw block devices and the /dev/tcp-style sockets.
var devicePattern = regexp.MustCompile(`^/dev/(sd|hd|nvme|vd|xvd|disk|tcp/|udp/)`)

// checkPipelineSafety rejects a parsed command line the model must not run.
// The checks work on stages and words after parsing, so quoting tricks
// that defeat substring matching do not apply.
func checkPipelineSafety(p *syntax.Pipeline) error {
	for i, s := range p.Stages {
		name := path.Base(s.Name())
		if blockedCommands[name] || strings.HasPrefix(name, "mkfs.") {
			return fmt.Errorf("command blocked: %s is not allowed", name)
		}
		if sessionBuiltins[s.Name()] {
			return fmt.Errorf("command blocked: %s controls the user's session", s.Name())
		}
		if name == "rm" && recursiveRootDelete(s.Argv[1:]) {
			return fmt.Errorf("command blocked: recursive delete of /")
		}
		if name == "dd" {
			for _, arg := range s.Argv[1:] {
				if strings.HasPrefix(arg, "of=/dev/") {
					return fmt.Errorf("command blocked: dd onto a device")
				}
			}
		}
		if name == "find" && containsWord(s.Argv[1:], "/") && (containsWord(s.Argv[1:], "-delete") || containsWord(s.Argv[1:], "-exec")) {
			return fmt.Errorf("command blocked: find over / with -delete or -exec")
		}
		if shells[name] && i > 0 && fetchers[path.Base(p.Stages[i-1].Name())] {
			return fmt.Errorf("command blocked: piping %s into a shell", p.Stages[i-1].Name())
		}
		for _, r := range s.Redirections {
			if devicePattern.MatchString(r.Target) {
				return fmt.Errorf("command blocked: redirection to %s", r.Target)
			}
		}
		for _, arg := range s.Argv[1:] {
			if strings.HasPrefix(arg, "/dev/tcp/") || strings.HasPrefix(arg, "/dev/udp/") {
				return fmt.Errorf("command blocked: network device %s", arg)
			}
		}
	}
	return nil
}

func recursiveRootDelete(args []string) bool {
	recursive := false
	root := false
	for _, a := range args {
		switch {
		case a == "--recursive":
			recursive = true
		case strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--"):
			if strings.ContainsAny(a, "rR") {
				recursive = true
			}
		case a == "/" || a == "/*":
			root = true
		}
	}
	return recursive && root
}

func containsWord(args []string, w string) bool {
	for _, a := range args {
		if a == w {
			return true
		}
	}
	return false
}
