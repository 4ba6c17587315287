package submission

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var dataURLPattern = regexp.MustCompile(`^data:(image/[a-zA-Z0-9.+-]+);base64,(.+)$`)

// JSONDecoder reads a JSON object whose photoDataUrl field carries the image.
type JSONDecoder struct {
	limits Limits
}

var _ Decoder = (*JSONDecoder)(nil)

func NewJSONDecoder(limits Limits) *JSONDecoder {
	return &JSONDecoder{limits: limits.withDefaults()}
}

func (d *JSONDecoder) Decode(r *http.Request) (*Payload, error) {
	body, err := readBody(r, d.limits.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Message: "Invalid JSON body", Err: err}
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := scalarString(v); ok {
			fields[k] = s
		}
	}

	dataURL := fields[FieldPhotoDataURL]
	delete(fields, FieldPhotoDataURL)
	if dataURL == "" {
		return nil, missingField(FieldPhotoDataURL)
	}
	photo, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	photo.Filename = fields[FieldPhotoName]
	return &Payload{Fields: fields, Photo: photo}, nil
}

// DecodeDataURL parses data:<image mime>;base64,<payload>.
func DecodeDataURL(s string) (*Photo, error) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, &DecodeError{Message: "photoDataUrl must be a valid base64 image data URL"}
	}
	mimeType := strings.ToLower(m[1])
	if _, ok := extByMime[mimeType]; !ok {
		return nil, &DecodeError{Message: "Unsupported image type " + mimeType}
	}

	encoded := m[2]
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, &DecodeError{Message: "photoDataUrl is not valid base64", Err: err}
	}
	if len(data) == 0 {
		return nil, &DecodeError{Message: "photoDataUrl is empty"}
	}
	return &Photo{Data: data, MimeType: mimeType}, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
