package tokenstore

import (
	"encoding/binary"
	"errors"
	"time"
)

// Status is the lifecycle state of a refresh-token entry.
type Status uint8

const (
	// StatusActive entries may be rotated or revoked.
	StatusActive Status = 1
	// StatusRotated entries were exchanged for a successor. Terminal.
	StatusRotated Status = 2
	// StatusRevoked entries were invalidated by logout or revoke-all. Terminal.
	StatusRevoked Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRotated:
		return "rotated"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Entry is the stored validity state of one refresh token.
type Entry struct {
	TokenID   string
	SubjectID string
	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether the entry is active and unexpired at now.
func (e *Entry) Active(now time.Time) bool {
	return e != nil && e.Status == StatusActive && now.Before(e.ExpiresAt)
}

// Layout (big-endian):
//
//	[0]      format version
//	[1]      status
//	[2:10]   created-at unix seconds
//	[10:18]  expires-at unix seconds
//	[18]     subject length
//	[19:]    subject
//
// The Lua scripts in redis.go read status, expires-at and subject at these fixed offsets.
const (
	entryFormatVersion = 1
	entryHeaderLen     = 19
	maxSubjectLen      = 255
)

func encodeEntry(e *Entry) ([]byte, error) {
	if len(e.SubjectID) == 0 || len(e.SubjectID) > maxSubjectLen {
		return nil, errors.New("subject length out of range")
	}
	if e.Status < StatusActive || e.Status > StatusRevoked {
		return nil, errors.New("invalid entry status")
	}

	buf := make([]byte, entryHeaderLen+len(e.SubjectID))
	buf[0] = entryFormatVersion
	buf[1] = byte(e.Status)
	binary.BigEndian.PutUint64(buf[2:10], uint64(e.CreatedAt.Unix()))
	binary.BigEndian.PutUint64(buf[10:18], uint64(e.ExpiresAt.Unix()))
	buf[18] = byte(len(e.SubjectID))
	copy(buf[entryHeaderLen:], e.SubjectID)
	return buf, nil
}

func decodeEntry(tokenID string, data []byte) (*Entry, error) {
	if len(data) < entryHeaderLen+1 || data[0] != entryFormatVersion {
		return nil, ErrCorruptEntry
	}
	status := Status(data[1])
	if status < StatusActive || status > StatusRevoked {
		return nil, ErrCorruptEntry
	}
	subLen := int(data[18])
	if subLen == 0 || len(data) != entryHeaderLen+subLen {
		return nil, ErrCorruptEntry
	}

	return &Entry{
		TokenID:   tokenID,
		SubjectID: string(data[entryHeaderLen:]),
		Status:    status,
		CreatedAt: time.Unix(int64(binary.BigEndian.Uint64(data[2:10])), 0),
		ExpiresAt: time.Unix(int64(binary.BigEndian.Uint64(data[10:18])), 0),
	}, nil
}
