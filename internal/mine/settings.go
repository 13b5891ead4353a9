package mine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// AllowList holds the Bash permission rules read from a Claude Code
// settings file. Rules look like "Bash(git commit:*)" for a prefix
// match or "Bash(ls)" for an exact command.
type AllowList struct {
	rules []allowRule
}

type allowRule struct {
	spec   string // Inner rule text, e.g. "git commit:*".
	head   string // First word of the command the rule covers.
	prefix bool   // Rule ends in ":*".
}

// DefaultSettingsPath returns the standard Claude Code settings
// location.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "settings.json")
}

// LoadAllowList reads permission.allow rules from a settings file.
// A missing or unreadable file yields an empty list, never an error:
// gap analysis degrades to reporting every frequent command rather
// than failing.
func LoadAllowList(path string) AllowList {
	if path == "" {
		path = DefaultSettingsPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AllowList{}
	}

	var settings struct {
		Permissions struct {
			Allow []string `json:"allow"`
		} `json:"permissions"`
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return AllowList{}
	}
	return parseAllowRules(settings.Permissions.Allow)
}

func parseAllowRules(entries []string) AllowList {
	var al AllowList
	for _, e := range entries {
		inner, ok := strings.CutPrefix(e, "Bash(")
		if !ok {
			continue
		}
		inner, ok = strings.CutSuffix(inner, ")")
		if !ok || inner == "" {
			continue
		}
		r := allowRule{spec: inner}
		if cut, found := strings.CutSuffix(inner, ":*"); found {
			r.prefix = true
			inner = cut
		}
		head, _, _ := strings.Cut(inner, " ")
		r.head = head
		al.rules = append(al.rules, r)
	}
	return al
}

// CoversHead reports whether any rule applies to the given command
// head.
func (al AllowList) CoversHead(head string) bool {
	for _, r := range al.rules {
		if r.head == head {
			return true
		}
	}
	return false
}

// Specs returns the inner rule texts, for similarity annotation.
func (al AllowList) Specs() []string {
	specs := make([]string, 0, len(al.rules))
	for _, r := range al.rules {
		specs = append(specs, r.spec)
	}
	return specs
}

// Empty reports whether no rules were loaded.
func (al AllowList) Empty() bool { return len(al.rules) == 0 }
