package submission

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const maxFieldValueBytes = 1 << 20

// MultipartDecoder streams multipart/form-data through mime/multipart with
// hard limits on file count, field count and file size.
type MultipartDecoder struct {
	limits Limits
}

var _ Decoder = (*MultipartDecoder)(nil)

func NewMultipartDecoder(limits Limits) *MultipartDecoder {
	return &MultipartDecoder{limits: limits.withDefaults()}
}

func (d *MultipartDecoder) Decode(r *http.Request) (*Payload, error) {
	boundary, err := multipartBoundary(r)
	if err != nil {
		return nil, err
	}
	body, err := readBody(r, d.limits.Body)
	if err != nil {
		return nil, err
	}

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	payload := &Payload{Fields: make(map[string]string)}
	files, fields := 0, 0
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DecodeError{Message: "Malformed multipart body", Err: err}
		}

		name := part.FormName()
		if part.FileName() != "" || isFilePart(part.Header.Get("Content-Type")) {
			files++
			if files > 1 {
				return nil, &PayloadTooLargeError{What: "file count", Limit: 1}
			}
			if name != FieldPhoto {
				return nil, &ValidationError{Field: name, Message: "Unexpected file field: " + name}
			}
			data, err := readLimited(part, d.limits.File, "photo")
			if err != nil {
				return nil, err
			}
			payload.Photo = &Photo{
				Data:     data,
				MimeType: photoMime(part.Header.Get("Content-Type"), part.FileName()),
				Filename: part.FileName(),
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
		value, err := readLimited(part, maxFieldValueBytes, "field "+name)
		if err != nil {
			return nil, err
		}
		payload.Fields[name] = string(value)
	}
	return payload, nil
}

func isFilePart(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct != "" && !strings.HasPrefix(ct, "text/plain")
}

func readLimited(r io.Reader, limit int64, what string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &DecodeError{Message: "Malformed multipart body", Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &PayloadTooLargeError{What: what, Limit: limit}
	}
	return data, nil
}
