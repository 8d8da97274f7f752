package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"hotel-booking/config"
)

var ErrUnknownObject = errors.New("object does not belong to this store")

// BlobStore keeps uploaded guest documents. Keys are slash separated and always start with the hotel id.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// KeyFromURL maps a URL returned by Put back to its key.
	KeyFromURL(url string) (string, error)
}

// New picks the backend named in cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "local", "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// BookingPrefix is the key prefix for every file of one booking.
func BookingPrefix(hotelID, bookingID string) string {
	return path.Join("hotels", hotelID, "bookings", bookingID) + "/"
}

// HotelPrefix is the key prefix for every file of one hotel.
func HotelPrefix(hotelID string) string {
	return path.Join("hotels", hotelID) + "/"
}

func keyFromURL(base, url string) (string, error) {
	base = strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", ErrUnknownObject
	}
	key := strings.TrimPrefix(url, base)
	if key == "" || strings.Contains(key, "..") {
		return "", ErrUnknownObject
	}
	return key, nil
}
