package transpiler

import "strings"

// FindMatchingBrace returns the index of the '}' that closes the '{' at
// open, honoring single, double, and backtick string quoting and backslash
// escapes inside those strings, per the Design Notes' open question on
// pathological nested closures. Returns -1 if unbalanced.
func FindMatchingBrace(src string, open int) int {
	if open < 0 || open >= len(src) || src[open] != '{' {
		return -1
	}
	depth := 0
	var quote byte
	escaped := false
	for i := open; i < len(src); i++ {
		c := src[i]

		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// closureCall describes one `recv.method{ ... }` or `recv.method(args){ ... }`
// invocation found by scanClosures.
type closureCall struct {
	Receiver  string
	Method    string
	ArgsStart int // index of '(' for recv.method(args){...}, or -1
	ArgsEnd   int
	Body      string
	Start     int // index of the start of "recv" in src
	End       int // index one past the closing '}'
}

// scanClosures finds every `<identifier-chain>.<method>{ ... }` occurrence
// in src for one of the given method names, using FindMatchingBrace so
// nested closures and braces inside string literals do not confuse the
// split.
func scanClosures(src string, methodNames []string) []closureCall {
	var out []closureCall
	for _, name := range methodNames {
		needle := "." + name
		start := 0
		for {
			idx := indexFrom(src, needle, start)
			if idx == -1 {
				break
			}
			afterMethod := idx + len(needle)
			j := afterMethod
			argsStart, argsEnd := -1, -1
			if j < len(src) && src[j] == '(' {
				depth := 0
				k := j
				for ; k < len(src); k++ {
					if src[k] == '(' {
						depth++
					} else if src[k] == ')' {
						depth--
						if depth == 0 {
							break
						}
					}
				}
				if k < len(src) {
					argsStart, argsEnd = j, k
					j = k + 1
				}
			}
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n') {
				j++
			}
			if j >= len(src) || src[j] != '{' {
				start = idx + len(needle)
				continue
			}
			close := FindMatchingBrace(src, j)
			if close == -1 {
				start = idx + len(needle)
				continue
			}

			recvStart := identifierChainStart(src, idx)
			out = append(out, closureCall{
				Receiver:  src[recvStart:idx],
				Method:    name,
				ArgsStart: argsStart,
				ArgsEnd:   argsEnd,
				Body:      src[j+1 : close],
				Start:     recvStart,
				End:       close + 1,
			})
			start = close + 1
		}
	}
	return out
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	rel := indexOf(s[from:], sub)
	if rel == -1 {
		return -1
	}
	return from + rel
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// identifierChainStart walks backward from dotIdx (pointing at the '.' that
// precedes the method name) over an identifier/dot/bracket chain to find
// where the receiver expression begins. A '}' immediately preceding the dot
// means the receiver is itself a prior closure call (method chaining, e.g.
// `list.findAll{...}.collect{...}`); the walk jumps to that closure's
// matching '{' and continues past whatever identifier chain introduced it.
func identifierChainStart(src string, dotIdx int) int {
	i := dotIdx
	for i > 0 {
		c := src[i-1]
		switch c {
		case ']':
			depth := 0
			for i > 0 {
				i--
				if src[i] == ']' {
					depth++
				} else if src[i] == '[' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			continue
		case ')':
			depth := 0
			for i > 0 {
				i--
				if src[i] == ')' {
					depth++
				} else if src[i] == '(' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			continue
		case '}':
			if open := findMatchingBraceBackward(src, i-1); open >= 0 {
				i = open
				continue
			}
			return i
		default:
			if isIdentChar(c) || c == '.' {
				i--
				continue
			}
		}
		return i
	}
	return i
}

// findMatchingBraceBackward scans backward from closeIdx (pointing at a
// '}') for its matching '{', by brace depth alone. Unlike FindMatchingBrace
// it does not track quote state: receiver-chain detection only needs to
// skip over balanced closure bodies, and unbalanced braces inside a string
// literal immediately followed by another method call are not a realistic
// pattern in legacy mapper fragments.
func findMatchingBraceBackward(src string, closeIdx int) int {
	depth := 0
	for i := closeIdx; i >= 0; i-- {
		switch src[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// splitClosureParams splits a closure body of the form "param -> body" (or
// "p1, p2 -> body") at the top-level "->", honoring the same quote/escape
// rules as FindMatchingBrace. Returns (params, body); params is ["it"] when
// no arrow is present (Groovy's implicit single parameter).
func splitClosureParams(body string) ([]string, string) {
	arrowIdx := findTopLevelArrow(body)
	if arrowIdx == -1 {
		return []string{"it"}, strings.TrimSpace(body)
	}
	paramPart := body[:arrowIdx]
	bodyPart := body[arrowIdx+2:]
	var params []string
	for _, p := range splitTopLevelComma(paramPart) {
		p = strings.TrimSpace(p)
		if p != "" {
			params = append(params, p)
		}
	}
	if len(params) == 0 {
		params = []string{"it"}
	}
	return params, strings.TrimSpace(bodyPart)
}

func findTopLevelArrow(s string) int {
	var quote byte
	escaped := false
	for i := 0; i < len(s)-1; i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '-':
			if s[i+1] == '>' {
				return i
			}
		}
	}
	return -1
}

func splitTopLevelComma(s string) []string {
	var out []string
	depth := 0
	var quote byte
	escaped := false
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	out = append(out, s[last:])
	return out
}
