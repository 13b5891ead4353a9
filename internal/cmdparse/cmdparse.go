// Package cmdparse provides lightweight shell command parsing for event
// normalization. It splits command strings on pipes and chain operators,
// respecting quotes, and extracts the pipeline-head command name that
// ingestion stores and prefix queries filter on. The split policy must
// stay stable: stored commands and query-side prefixes match only if
// both sides split the same way.
package cmdparse

import "strings"

// Segment represents one command in a pipeline or chain.
type Segment struct {
	Command string   // program name (e.g., "git")
	Tokens  []string // all tokens after the command
	Raw     string   // original text of this segment (trimmed)
}

// Split breaks a full shell command string into the head command name
// and the remaining argument string. The head is the first token of the
// first pipeline segment; env-var assignments and leading sudo are
// skipped so "FOO=1 sudo git push" heads to "git".
func Split(cmd string) (head, args string) {
	segs := Parse(cmd)
	if len(segs) == 0 {
		return "", ""
	}
	first := segs[0]
	tokens := append([]string{first.Command}, first.Tokens...)

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if strings.Contains(tok, "=") && !strings.HasPrefix(tok, "-") && isAssignment(tok) {
			i++
			continue
		}
		if tok == "sudo" {
			i++
			continue
		}
		break
	}
	if i >= len(tokens) {
		return "", ""
	}

	head = tokens[i]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.Join(tokens[i:], " "), head))
	return head, rest
}

// isAssignment reports whether a token looks like NAME=value.
func isAssignment(tok string) bool {
	eq := strings.IndexByte(tok, '=')
	if eq <= 0 {
		return false
	}
	for j := 0; j < eq; j++ {
		c := tok[j]
		if !(c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || j > 0 && c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Parse splits a command string into Segments on |, &&, ||, ;.
// It respects single and double quotes and backslash escapes.
func Parse(cmd string) []Segment {
	parts := splitOperators(cmd)
	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		tokens := tokenize(trimmed)
		s := Segment{Raw: trimmed}
		if len(tokens) > 0 {
			s.Command = tokens[0]
			s.Tokens = tokens[1:]
		}
		segs = append(segs, s)
	}
	return segs
}

// splitOperators splits on unquoted |, &&, ||, ; preserving text order.
func splitOperators(cmd string) []string {
	var parts []string
	inSingle := false
	inDouble := false
	escaped := false
	segStart := 0

	i := 0
	for i < len(cmd) {
		ch := cmd[i]
		if escaped {
			escaped = false
			i++
			continue
		}
		if ch == '\\' && !inSingle {
			escaped = true
			i++
			continue
		}
		if ch == '\'' && !inDouble {
			inSingle = !inSingle
			i++
			continue
		}
		if ch == '"' && !inSingle {
			inDouble = !inDouble
			i++
			continue
		}
		if inSingle || inDouble {
			i++
			continue
		}

		// Operators: &&, ||, |, ;
		if ch == ';' {
			parts = append(parts, cmd[segStart:i])
			segStart = i + 1
			i++
			continue
		}
		if ch == '|' {
			if i+1 < len(cmd) && cmd[i+1] == '|' {
				parts = append(parts, cmd[segStart:i])
				segStart = i + 2
				i += 2
				continue
			}
			parts = append(parts, cmd[segStart:i])
			segStart = i + 1
			i++
			continue
		}
		if ch == '&' && i+1 < len(cmd) && cmd[i+1] == '&' {
			parts = append(parts, cmd[segStart:i])
			segStart = i + 2
			i += 2
			continue
		}
		i++
	}
	if segStart < len(cmd) {
		parts = append(parts, cmd[segStart:])
	}
	return parts
}

// tokenize splits a command segment into tokens, respecting quotes and
// escapes. It does not interpret shell syntax beyond basic quoting.
func tokenize(s string) []string {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			current.WriteByte(ch)
			escaped = false
			continue
		}
		if ch == '\\' && !inSingle {
			escaped = true
			if inDouble {
				current.WriteByte(ch)
			}
			continue
		}
		if ch == '\'' && !inDouble {
			inSingle = !inSingle
			continue
		}
		if ch == '"' && !inSingle {
			inDouble = !inDouble
			continue
		}
		if (ch == ' ' || ch == '\t') && !inSingle && !inDouble {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteByte(ch)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
