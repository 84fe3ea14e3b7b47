// Package flagx helps several packages share os.Args without tripping over
// each other's flags: every consumer filters the argument list down to the
// flags it owns before handing it to a flag.FlagSet.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps only the flags listed in owned, together with their values.
//
// Both "-f value" and "-f=value" forms are recognised. A token that follows an
// owned flag is treated as its value unless it starts with "-".
func FilterArgs(args []string, owned []string) []string {
	known := make(map[string]struct{}, len(owned))
	for _, f := range owned {
		known[f] = struct{}{}
	}

	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			if name, _, found := strings.Cut(arg, "="); found {
				if _, ok := known[name]; ok {
					out = append(out, arg)
				}
				continue
			}
		}

		if _, ok := known[arg]; !ok {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigFileFlag returns the value of -c / -config found in args, or "" when
// neither is given. When both appear the last one wins.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
