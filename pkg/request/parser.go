package request

import (
	"bufio"
	"strings"
)

// lineTerminator is re-inserted after every body line.
const lineTerminator = "\r\n"

// Parse parses raw bytes read from a connection.
//
// Invalid UTF-8 is replaced with U+FFFD. Lines end at "\n" with an optional
// preceding "\r". A non-empty header line without ':' rejects the whole
// request with ErrHeaderLine.
//
// Parse sees only the bytes it is given. A request cut short by the caller's
// read, for example one larger than a single fixed-size read, is parsed as
// truncated: the body ends early, or a header line cut before its ':' fails.
func Parse(buf []byte) (*Request, error) {
	text := strings.ToValidUTF8(string(buf), "\uFFFD")
	lines := bufio.NewScanner(strings.NewReader(text))
	lines.Buffer(make([]byte, 0, 4096), len(text)+1)
	lineNo := 0
	next := func() (string, bool) {
		if !lines.Scan() {
			return "", false
		}
		lineNo++
		return lines.Text(), true
	}

	// Start line.
	start, ok := next()
	if !ok {
		return nil, &ParseError{Line: 1, Err: ErrEmpty}
	}
	tokens := strings.Split(start, " ")
	if len(tokens) != 3 {
		return nil, &ParseError{Line: lineNo, Err: ErrStartLine}
	}
	method, err := ParseMethod(tokens[0])
	if err != nil {
		return nil, &ParseError{Line: lineNo, Err: err}
	}
	req := &Request{
		Method:  method,
		URI:     tokens[1],
		Version: tokens[2],
		Headers: make(map[string]string),
	}

	// Headers.
	for {
		line, ok := next()
		if !ok || line == "" {
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, &ParseError{Line: lineNo, Err: ErrHeaderLine}
		}
		req.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	// Body.
	if method != Get {
		var body strings.Builder
		for {
			line, ok := next()
			if !ok {
				break
			}
			body.WriteString(line)
			body.WriteString(lineTerminator)
		}
		if body.Len() > 0 {
			s := body.String()
			req.Body = &s
		}
	}

	return req, nil
}
