package provider

import (
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// MaxAttachmentSize bounds the size of an image sent to a provider.
const MaxAttachmentSize = 20 << 20

// Attachment is an image sent along with a student question.
type Attachment struct {
	Data     []byte
	MIMEType string
}

func (a *Attachment) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// DataURL encodes the attachment as a base64 data URL.
func (a *Attachment) DataURL() string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Clone returns a copy that does not share the data buffer.
func (a *Attachment) Clone() *Attachment {
	if a == nil {
		return nil
	}
	return &Attachment{
		Data:     append([]byte(nil), a.Data...),
		MIMEType: a.MIMEType,
	}
}

// NewAttachment validates an image and its declared media type. When mimeType is
// empty it is sniffed from the data.
func NewAttachment(data []byte, mimeType string) (*Attachment, error) {
	if len(data) == 0 {
		return nil, errors.New("attachment is empty")
	}
	if len(data) > MaxAttachmentSize {
		return nil, errors.Errorf("attachment is too large (%d bytes)", len(data))
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.Errorf("unsupported attachment type %s", mimeType)
	}
	return &Attachment{Data: data, MIMEType: mimeType}, nil
}

func AttachmentFromFile(path string) (*Attachment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read image %s", path)
	}
	return NewAttachment(b, "")
}

// AttachmentFromDataURL decodes a "data:<mime>;base64,<payload>" URL.
func AttachmentFromDataURL(u string) (*Attachment, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, errors.New("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, errors.New("only base64 data URLs are supported")
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode data URL")
	}
	return NewAttachment(b, mimeType)
}
