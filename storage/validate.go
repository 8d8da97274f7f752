package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadBytes is the per-file limit for guest documents.
const MaxUploadBytes = 5 << 20

var (
	ErrFileTooLarge    = errors.New("file exceeds 5 MB")
	ErrFileEmpty       = errors.New("file is empty")
	ErrUnsupportedType = errors.New("only PNG, JPEG or PDF files are accepted")
)

var allowedTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"application/pdf": ".pdf",
}

// SniffedFile is an upload whose content type was detected from its bytes, not its name.
type SniffedFile struct {
	Data        []byte
	ContentType string
	Extension   string
}

func (f SniffedFile) Reader() io.Reader { return bytes.NewReader(f.Data) }
func (f SniffedFile) Size() int64       { return int64(len(f.Data)) }

// Sniff reads at most MaxUploadBytes+1 bytes and checks size and type.
func Sniff(r io.Reader) (SniffedFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return SniffedFile{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return SniffedFile{}, ErrFileEmpty
	}
	if len(data) > MaxUploadBytes {
		return SniffedFile{}, ErrFileTooLarge
	}

	mt := mimetype.Detect(data)
	ct := strings.SplitN(mt.String(), ";", 2)[0]
	ext, ok := allowedTypes[ct]
	if !ok {
		return SniffedFile{}, ErrUnsupportedType
	}
	return SniffedFile{Data: data, ContentType: ct, Extension: ext}, nil
}

// DocumentKey names a new object for one wizard slot. The random suffix keeps replaced files from colliding.
func DocumentKey(hotelID, bookingID, slot, ext string) string {
	return BookingPrefix(hotelID, bookingID) + slot + "-" + uuid.NewString() + ext
}
