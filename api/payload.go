package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/rpupo63/portfolio-backend/errs"
)

const (
	mediaJSON      = "application/json"
	mediaForm      = "application/x-www-form-urlencoded"
	mediaMultipart = "multipart/form-data"

	multipartMemory = 10 << 20
)

// Field messages shared by every decoder.
const (
	msgRequired      = "This field is required."
	msgNull          = "This field may not be null."
	msgInvalidInt    = "A valid integer is required."
	msgInvalidBool   = "Must be a valid boolean."
	msgInvalidPK     = "Incorrect type. Expected pk value, received str."
	msgInvalidJSON   = "Value must be valid JSON."
	msgNoFile        = "No file was submitted."
	msgNotAFile      = "The submitted data was not a file. Check the encoding type on the form."
	msgInvalidImage  = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgStringList    = "Expected a list of strings."
	msgMissingObject = `Invalid pk "%d" - object does not exist.`
)

// payload is a decoded request body. JSON bodies fill json, form and
// multipart bodies fill form and files.
type payload struct {
	json  map[string]json.RawMessage
	form  url.Values
	files map[string][]*multipart.FileHeader
}

// readPayload decodes the body of r if its media type is one of accepted.
// A request without Content-Type has an empty payload.
func readPayload(r *http.Request, accepted ...string) (*payload, error) {
	p := &payload{form: url.Values{}}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return p, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !slices.Contains(accepted, mediaType) {
		return nil, errs.NewUnsupportedMediaTypeError(contentType, accepted)
	}

	switch mediaType {
	case mediaJSON:
		if err := json.NewDecoder(r.Body).Decode(&p.json); err != nil && !errors.Is(err, io.EOF) {
			return nil, bodyError(err, errs.NewInvalidJSONError(err))
		}
		if p.json == nil {
			p.json = map[string]json.RawMessage{}
		}
	case mediaForm:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err, errs.NewMalformedPayloadError("form", err))
		}
		p.form = r.PostForm
	case mediaMultipart:
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err, errs.NewMalformedPayloadError("multipart", err))
		}
		p.form = url.Values(r.MultipartForm.Value)
		p.files = r.MultipartForm.File
	}
	return p, nil
}

func bodyError(err error, fallback error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errs.NewMaxBodySizeExceededError(maxErr.Limit)
	}
	return fallback
}

func (p *payload) has(field string) bool {
	if p.json != nil {
		_, ok := p.json[field]
		return ok
	}
	if _, ok := p.form[field]; ok {
		return true
	}
	_, ok := p.files[field]
	return ok
}

func (p *payload) isNull(field string) bool {
	raw, ok := p.json[field]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// value returns the first value of field as text. JSON strings are
// unquoted; other JSON values keep their literal form.
func (p *payload) value(field string) string {
	if p.json != nil {
		return jsonText(p.json[field])
	}
	return p.form.Get(field)
}

// values returns every value of field. A JSON array yields its elements.
func (p *payload) values(field string) []string {
	if p.json == nil {
		return p.form[field]
	}
	raw, ok := p.json[field]
	if !ok || p.isNull(field) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{jsonText(raw)}
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = jsonText(item)
	}
	return out
}

func jsonText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// fieldReader copies payload fields into typed destinations, recording a
// message per field that fails to decode. Absent fields leave their
// destination untouched, which gives PATCH its merge semantics.
type fieldReader struct {
	p       *payload
	partial bool
	errs    *errs.ValidationError
}

func newFieldReader(p *payload, partial bool) *fieldReader {
	return &fieldReader{p: p, partial: partial, errs: errs.NewValidationError()}
}

// required flags each absent field unless the write is partial.
func (f *fieldReader) required(fields ...string) {
	if f.partial {
		return
	}
	for _, field := range fields {
		if !f.p.has(field) {
			f.errs.Add(field, msgRequired)
		}
	}
}

func (f *fieldReader) present(field string) bool {
	if !f.p.has(field) {
		return false
	}
	if f.p.isNull(field) {
		f.errs.Add(field, msgNull)
		return false
	}
	return true
}

// String stores the value with surrounding whitespace trimmed, so a blank
// value fails a required check.
func (f *fieldReader) String(field string, dst *string) {
	if f.present(field) {
		*dst = strings.TrimSpace(f.p.value(field))
	}
}

// OptionalString stores nil for null or blank input.
func (f *fieldReader) OptionalString(field string, dst **string) {
	if !f.p.has(field) {
		return
	}
	v := strings.TrimSpace(f.p.value(field))
	if f.p.isNull(field) || v == "" {
		*dst = nil
		return
	}
	*dst = &v
}

func (f *fieldReader) Int(field string, dst *int) {
	if !f.present(field) {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(f.p.value(field)))
	if err != nil {
		f.errs.Add(field, msgInvalidInt)
		return
	}
	*dst = n
}

func (f *fieldReader) Bool(field string, dst *bool) {
	if !f.present(field) {
		return
	}
	switch strings.ToLower(strings.TrimSpace(f.p.value(field))) {
	case "true", "t", "1", "yes", "y", "on":
		*dst = true
	case "false", "f", "0", "no", "n", "off":
		*dst = false
	default:
		f.errs.Add(field, msgInvalidBool)
	}
}

// ID reads a primary key reference.
func (f *fieldReader) ID(field string, dst *uint) {
	if !f.present(field) {
		return
	}
	id, ok := parseID(f.p.value(field))
	if !ok {
		f.errs.Add(field, msgInvalidPK)
		return
	}
	*dst = id
}

// IDList reads primary key references given as repeated values, one JSON
// array, or objects carrying an "id". It reports whether field was sent.
func (f *fieldReader) IDList(field string) ([]uint, bool) {
	if !f.present(field) {
		return nil, false
	}

	values := f.p.values(field)
	if f.p.json == nil && len(values) == 1 {
		single := strings.TrimSpace(values[0])
		switch {
		case single == "":
			values = nil
		case strings.HasPrefix(single, "["):
			var items []json.RawMessage
			if err := json.Unmarshal([]byte(single), &items); err != nil {
				f.errs.Add(field, msgInvalidJSON)
				return nil, true
			}
			values = make([]string, len(items))
			for i, item := range items {
				values[i] = jsonText(item)
			}
		}
	}

	ids := make([]uint, 0, len(values))
	seen := make(map[uint]bool, len(values))
	for _, v := range values {
		id, ok := parseID(v)
		if !ok {
			f.errs.Add(field, msgInvalidPK)
			return nil, true
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, true
}

// StringList reads a JSON array of strings. Form bodies carry it as one
// JSON encoded value.
func (f *fieldReader) StringList(field string, dst *[]string) {
	if !f.present(field) {
		return
	}

	var raw []byte
	if f.p.json != nil {
		raw = f.p.json[field]
	} else {
		raw = []byte(f.p.value(field))
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		f.errs.Add(field, msgInvalidJSON)
		return
	}
	list, err := stringList(decoded)
	if err != nil {
		f.errs.Add(field, err.Error())
		return
	}
	*dst = list
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New(msgStringList)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s Item %d is not a string.", msgStringList, i)
		}
		out[i] = s
	}
	return out, nil
}

// File returns the single upload in field, or nil. Blank text values count
// as absent; other text values are an error.
func (f *fieldReader) File(field string) *multipart.FileHeader {
	if headers := f.p.files[field]; len(headers) > 0 {
		return headers[0]
	}
	if f.p.has(field) && strings.TrimSpace(f.p.value(field)) != "" {
		f.errs.Add(field, msgNotAFile)
	}
	return nil
}

func (f *fieldReader) Files(field string) []*multipart.FileHeader {
	headers := f.p.files[field]
	if len(headers) == 0 && f.p.has(field) && strings.TrimSpace(f.p.value(field)) != "" {
		f.errs.Add(field, msgNotAFile)
	}
	return headers
}

func parseID(s string) (uint, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		var ref struct {
			ID json.Number `json:"id"`
		}
		if err := json.Unmarshal([]byte(s), &ref); err != nil {
			return 0, false
		}
		s = ref.ID.String()
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
