// Package command defines the normalized natural-language command request
// accepted by the classifier, and its decoding from wire input.
package command

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeZone is the zone assumed when neither the request nor the
// configuration names one.
const DefaultTimeZone = "America/Sao_Paulo"

// Kind is the type of user payload.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// UnknownFamily is used when the caller does not identify a family.
const UnknownFamily = "unknown"

// DefaultImageMIME is assumed for raw base64 image payloads.
const DefaultImageMIME = "image/jpeg"

var (
	// ErrEmptyPayload is returned when the request carries no content.
	ErrEmptyPayload = errors.New("command payload is empty")

	// ErrInvalidKind is returned for a kind other than text or image.
	ErrInvalidKind = errors.New("command kind must be text or image")

	// ErrInvalidTimeZone is returned for an unknown IANA zone name.
	ErrInvalidTimeZone = errors.New("invalid time zone")

	// ErrInvalidImage is returned when an image payload cannot be decoded.
	ErrInvalidImage = errors.New("invalid image payload")
)

// Context is the caller metadata sent alongside every command.
type Context struct {
	CurrentDateTime time.Time
	TimeZone        string
	FamilyID        string

	loc *time.Location
}

// Location returns the loaded time zone. Valid only after Normalize.
func (c Context) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// UTCOffset formats the zone offset at CurrentDateTime as +HH:MM.
func (c Context) UTCOffset() string {
	return c.CurrentDateTime.In(c.Location()).Format("-07:00")
}

// Request is a single natural-language command.
type Request struct {
	Kind    Kind
	Payload string
	Context Context
}

// Image is a decoded image payload.
type Image struct {
	MIMEType string
	Data     []byte
}

// Normalize validates the request and fills context defaults: the zone
// falls back to defaultZone, the current time to now in that zone and the
// family to UnknownFamily.
func (r *Request) Normalize(defaultZone string, now time.Time) error {
	if r.Kind == "" {
		r.Kind = KindText
	}
	if r.Kind != KindText && r.Kind != KindImage {
		return fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if strings.TrimSpace(r.Payload) == "" {
		return ErrEmptyPayload
	}

	zone := strings.TrimSpace(r.Context.TimeZone)
	if zone == "" {
		zone = defaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}
	r.Context.TimeZone = zone
	r.Context.loc = loc

	if r.Context.CurrentDateTime.IsZero() {
		r.Context.CurrentDateTime = now
	}
	r.Context.CurrentDateTime = r.Context.CurrentDateTime.In(loc)

	if strings.TrimSpace(r.Context.FamilyID) == "" {
		r.Context.FamilyID = UnknownFamily
	}
	return nil
}

// Image decodes an image payload given either as a data URL
// (data:image/png;base64,...) or as raw base64.
func (r Request) Image() (Image, error) {
	if r.Kind != KindImage {
		return Image{}, fmt.Errorf("%w: request kind is %q", ErrInvalidImage, r.Kind)
	}
	return DecodeImage(r.Payload)
}

// DecodeImage parses a data URL or raw base64 string.
func DecodeImage(payload string) (Image, error) {
	payload = strings.TrimSpace(payload)
	mime := DefaultImageMIME
	data := payload

	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok {
			return Image{}, fmt.Errorf("%w: data URL has no comma", ErrInvalidImage)
		}
		params := strings.Split(header, ";")
		if params[0] != "" {
			mime = params[0]
		}
		isBase64 := false
		for _, p := range params[1:] {
			if p == "base64" {
				isBase64 = true
			}
		}
		if !isBase64 {
			return Image{}, fmt.Errorf("%w: data URL is not base64 encoded", ErrInvalidImage)
		}
		data = body
	}

	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: unsupported MIME type %q", ErrInvalidImage, mime)
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	}
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(raw) == 0 {
		return Image{}, fmt.Errorf("%w: no image data", ErrInvalidImage)
	}
	return Image{MIMEType: mime, Data: raw}, nil
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}
