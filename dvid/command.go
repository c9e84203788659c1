package dvid

import (
	"strings"
)

// Command holds a command line split into words.  The first word is the command
// name.  Later words are positional arguments or optional settings of the form
// "<key>=<value>".
type Command []string

// String returns a space-separated command line
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument which is assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0]
}

// Parameter scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Parameter(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.SplitN(arg, "=", 2)
			if len(elems) == 2 && elems[0] == key {
				return elems[1], true
			}
		}
	}
	return
}

// CommandArgs sets a variadic argument set of string pointers to positional
// arguments, skipping settings of the form "<key>=<value>".  If there aren't enough
// arguments to set a target, the target is set to the empty string.  It returns an
// 'overflow' slice that has all arguments beyond those needed for targets.
func (cmd Command) CommandArgs(targets ...*string) (overflow []string) {
	for _, target := range targets {
		*target = ""
	}
	if len(cmd) < 2 {
		return
	}
	curTarget := 0
	for _, arg := range cmd[1:] {
		if strings.Contains(arg, "=") {
			continue
		}
		if curTarget < len(targets) {
			*(targets[curTarget]) = arg
		} else {
			overflow = append(overflow, arg)
		}
		curTarget++
	}
	return
}
