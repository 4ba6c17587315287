package submission

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Multipart parser strategies.
const (
	ParserLibrary = "library"
	ParserManual  = "manual"
)

// Limits bounds what a decoder will buffer.
type Limits struct {
	Body   int64 // whole request body
	File   int64 // single photo part
	Fields int   // plain form fields
}

// DefaultLimits matches the production ceilings.
func DefaultLimits() Limits {
	return Limits{
		Body:   15 << 20,
		File:   10 << 20,
		Fields: 20,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.Body <= 0 {
		l.Body = d.Body
	}
	if l.File <= 0 {
		l.File = d.File
	}
	if l.Fields <= 0 {
		l.Fields = d.Fields
	}
	return l
}

// Decoder turns a submission request into a Payload.
type Decoder interface {
	Decode(r *http.Request) (*Payload, error)
}

// ContentDecoder dispatches on the request content type. Multipart bodies go
// to the configured multipart strategy; every other body is read as JSON
// whatever its header says, so fetch calls posting text/plain still work.
type ContentDecoder struct {
	json      Decoder
	multipart Decoder
}

var _ Decoder = (*ContentDecoder)(nil)

// NewDecoder builds the dispatcher for the given multipart parser.
func NewDecoder(parser string, limits Limits) (*ContentDecoder, error) {
	limits = limits.withDefaults()
	d := &ContentDecoder{json: NewJSONDecoder(limits)}
	switch parser {
	case "", ParserLibrary:
		d.multipart = NewMultipartDecoder(limits)
	case ParserManual:
		d.multipart = NewManualMultipartDecoder(limits)
	default:
		return nil, fmt.Errorf("unknown multipart parser %q", parser)
	}
	return d, nil
}

func (d *ContentDecoder) Decode(r *http.Request) (*Payload, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" {
		return d.multipart.Decode(r)
	}
	return d.json.Decode(r)
}

// readBody buffers at most limit bytes of the body.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &PayloadTooLargeError{What: "request body", Limit: tooLarge.Limit}
		}
		return nil, &DecodeError{Message: "Failed to read request body", Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &PayloadTooLargeError{What: "request body", Limit: limit}
	}
	return data, nil
}

func multipartBoundary(r *http.Request) (string, error) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", &DecodeError{Message: "Invalid Content-Type header", Err: err}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", &DecodeError{Message: "Missing multipart boundary"}
	}
	return boundary, nil
}

var extByMime = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

var allowedExt = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".webp": ".webp",
	".gif":  ".gif",
	".heic": ".heic",
	".heif": ".heif",
}

// ResolveExtension maps a photo to a file extension: the MIME type first,
// then the original filename, then .jpg.
func ResolveExtension(mimeType, filename string) string {
	if ext, ok := extByMime[strings.ToLower(strings.TrimSpace(mimeType))]; ok {
		return ext
	}
	if ext, ok := allowedExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return ext
	}
	return ".jpg"
}

// photoMime settles the MIME type for an uploaded part that may not declare one.
func photoMime(declared, filename string) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	return "image/jpeg"
}
