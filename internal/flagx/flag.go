// Package flagx lets several components share os.Args: each one filters out
// the flags it owns before handing them to its own flag.FlagSet.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the arguments that belong to one of owned, in order,
// together with their values. A value is either joined with '=' or is the
// next argument when that does not itself start with '-'. "--config" matches
// an owned "-config", as in the flag package. Scanning stops at "--".
func FilterArgs(args []string, owned []string) []string {
	names := make(map[string]bool, len(owned))
	for _, f := range owned {
		names[strings.TrimLeft(f, "-")] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, joined, ok := flagName(arg)
		if !ok || !names[name] {
			continue
		}
		out = append(out, arg)
		if !joined && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, args[i])
		}
	}
	return out
}

// flagName splits "-x", "--x" or "-x=v" into the bare name and whether the
// value is joined.
func flagName(arg string) (name string, joined bool, ok bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false, false
	}
	name = strings.TrimPrefix(arg[1:], "-")
	if name == "" || name[0] == '-' {
		return "", false, false
	}
	if k, _, found := strings.Cut(name, "="); found {
		return k, true, true
	}
	return name, false, true
}

// ConfigPath extracts the JSON config file path given via -c or -config.
// An empty string means no file was requested.
func ConfigPath(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}

// JsonConfigFlags is ConfigPath over the process arguments.
func JsonConfigFlags() string {
	return ConfigPath(os.Args[1:])
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
