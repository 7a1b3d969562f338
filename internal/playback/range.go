// Package playback serves cut clip audio with HTTP byte-range support so the
// panel's audio element can scrub a clip before it is added to the dataset.
package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// ByteRange is an inclusive byte interval of a file.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// Header formats the Content-Range value for a file of total bytes.
func (r ByteRange) Header(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange reads the first range of a Range header against a file of size
// bytes. ok is false when the header is absent.
func ParseRange(header string, size int64) (r ByteRange, ok bool, err error) {
	if header == "" {
		return ByteRange{}, false, nil
	}

	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return ByteRange{}, false, ErrInvalidRange
	}
	if first, _, multi := strings.Cut(spec, ","); multi {
		spec = first
	}
	startStr, endStr, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return ByteRange{}, false, ErrInvalidRange
	}

	if startStr == "" {
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix <= 0 {
			return ByteRange{}, false, ErrInvalidRange
		}
		r.Start = max(size-suffix, 0)
		r.End = size - 1
	} else {
		r.Start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || r.Start < 0 {
			return ByteRange{}, false, ErrInvalidRange
		}
		r.End = size - 1
		if endStr != "" {
			r.End, err = strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return ByteRange{}, false, ErrInvalidRange
			}
		}
	}

	if r.Start > r.End || r.Start >= size {
		return ByteRange{}, false, ErrUnsatisfiable
	}
	r.End = min(r.End, size-1)
	return r, true, nil
}
