package main

import "strings"

// SplitStatements splits a SQL script into individual statements on
// semicolons, respecting single-quoted strings, backtick-quoted
// identifiers, line comments and block comments. This is deliberately a
// lexical scan, not a parser.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	const (
		stateNormal = iota
		stateString
		stateBacktick
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	runes := []rune(script)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '\'':
				state = stateString
				current.WriteRune(ch)
			case ch == '`':
				state = stateBacktick
				current.WriteRune(ch)
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
			case ch == ';':
				statements = appendStatement(statements, current.String())
				current.Reset()
			default:
				current.WriteRune(ch)
			}

		case stateString:
			current.WriteRune(ch)
			if ch == '\'' {
				// Doubled quote is an escaped quote, not a terminator.
				if next == '\'' {
					current.WriteRune(next)
					i++
				} else {
					state = stateNormal
				}
			}

		case stateBacktick:
			current.WriteRune(ch)
			if ch == '`' {
				state = stateNormal
			}

		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
				current.WriteRune(ch)
			}

		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	statements = appendStatement(statements, current.String())
	return statements
}

func appendStatement(statements []string, raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return statements
	}
	return append(statements, trimmed)
}
