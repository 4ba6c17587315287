package submission

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
)

var (
	crlf      = []byte("\r\n")
	headerEnd = []byte("\r\n\r\n")
	dashDash  = []byte("--")
)

// ManualMultipartDecoder scans the buffered body for boundary delimiters
// itself. Delimiters only count when they start a line and are followed by
// "--" or by optional spaces and tabs then CRLF, so boundary-like bytes inside
// binary photo data are skipped.
type ManualMultipartDecoder struct {
	limits Limits
}

var _ Decoder = (*ManualMultipartDecoder)(nil)

func NewManualMultipartDecoder(limits Limits) *ManualMultipartDecoder {
	return &ManualMultipartDecoder{limits: limits.withDefaults()}
}

func (d *ManualMultipartDecoder) Decode(r *http.Request) (*Payload, error) {
	boundary, err := multipartBoundary(r)
	if err != nil {
		return nil, err
	}
	body, err := readBody(r, d.limits.Body)
	if err != nil {
		return nil, err
	}
	return d.parse(body, boundary)
}

type rawPart struct {
	headers map[string]string
	body    []byte
}

func (d *ManualMultipartDecoder) parse(body []byte, boundary string) (*Payload, error) {
	delim := append([]byte("--"), boundary...)
	lineDelim := append(append([]byte(nil), crlf...), delim...)

	var pos int
	switch {
	case bytes.HasPrefix(body, delim):
		pos = 0
	default:
		idx := indexDelimiter(body, lineDelim, 0)
		if idx < 0 {
			return nil, &DecodeError{Message: "Multipart boundary not found"}
		}
		pos = idx + len(crlf)
	}

	payload := &Payload{Fields: make(map[string]string)}
	files, fields := 0, 0
	for {
		after := pos + len(delim)
		rest := body[after:]
		if bytes.HasPrefix(rest, dashDash) {
			return payload, nil
		}
		padded := skipPadding(rest)
		if !bytes.HasPrefix(padded, crlf) {
			return nil, &DecodeError{Message: "Malformed multipart delimiter"}
		}
		start := after + (len(rest) - len(padded)) + len(crlf)

		next := indexDelimiter(body, lineDelim, start)
		if next < 0 {
			return nil, &DecodeError{Message: "Multipart body is missing its closing boundary"}
		}
		part, err := splitPart(body[start:next])
		if err != nil {
			return nil, err
		}
		pos = next + len(crlf)

		disposition := part.headers["content-disposition"]
		_, params, _ := mime.ParseMediaType(disposition)
		name := params["name"]
		filename, hasFilename := params["filename"]
		if !hasFilename {
			hasFilename = strings.Contains(disposition, "filename=")
		}
		contentType, hasType := part.headers["content-type"]

		if hasType || hasFilename {
			files++
			if files > 1 {
				return nil, &PayloadTooLargeError{What: "file count", Limit: 1}
			}
			if name != FieldPhoto {
				return nil, &ValidationError{Field: name, Message: "Unexpected file field: " + name}
			}
			if int64(len(part.body)) > d.limits.File {
				return nil, &PayloadTooLargeError{What: "photo", Limit: d.limits.File}
			}
			payload.Photo = &Photo{
				Data:     part.body,
				MimeType: photoMime(contentType, filename),
				Filename: filename,
			}
			continue
		}

		if name == "" {
			continue
		}
		fields++
		if fields > d.limits.Fields {
			return nil, &PayloadTooLargeError{What: "field count", Limit: int64(d.limits.Fields)}
		}
		payload.Fields[name] = string(part.body)
	}
}

// indexDelimiter finds the next CRLF-prefixed delimiter at or after from that
// is followed by "--" or by padding then CRLF. It returns the offset of the
// leading CRLF.
func indexDelimiter(body, lineDelim []byte, from int) int {
	for from <= len(body) {
		i := bytes.Index(body[from:], lineDelim)
		if i < 0 {
			return -1
		}
		at := from + i
		tail := body[at+len(lineDelim):]
		if bytes.HasPrefix(tail, dashDash) || bytes.HasPrefix(skipPadding(tail), crlf) {
			return at
		}
		from = at + 1
	}
	return -1
}

// skipPadding drops the linear whitespace allowed after a boundary.
func skipPadding(b []byte) []byte {
	return bytes.TrimLeft(b, " \t")
}

func splitPart(raw []byte) (rawPart, error) {
	var headerBlock, content []byte
	if bytes.HasPrefix(raw, crlf) {
		// part without headers
		content = raw[len(crlf):]
	} else {
		i := bytes.Index(raw, headerEnd)
		if i < 0 {
			return rawPart{}, &DecodeError{Message: "Multipart part is missing its header block"}
		}
		headerBlock, content = raw[:i], raw[i+len(headerEnd):]
	}

	headers := make(map[string]string)
	for _, line := range strings.Split(string(headerBlock), "\r\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return rawPart{headers: headers, body: content}, nil
}
