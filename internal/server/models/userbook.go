package models

import (
	"encoding/json"
	"time"
)

type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "want_to_read"
	StatusReading    ReadingStatus = "reading"
	StatusFinished   ReadingStatus = "finished"
)

// UserBook is one entry of a user's personal library.
type UserBook struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"userId"`
	BookID       int64      `json:"bookId"`
	UserRating   *int       `json:"userRating"`
	DateStarted  *time.Time `json:"dateStarted"`
	DateFinished *time.Time `json:"dateFinished"`
	UserNotes    *string    `json:"userNotes"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Book         *Book      `json:"book,omitempty"`
}

// Status derives the reading status from the recorded dates.
func (ub *UserBook) Status() ReadingStatus {
	switch {
	case ub.DateFinished != nil:
		return StatusFinished
	case ub.DateStarted != nil:
		return StatusReading
	default:
		return StatusWantToRead
	}
}

func (ub UserBook) MarshalJSON() ([]byte, error) {
	type plain UserBook
	return json.Marshal(struct {
		plain
		Status ReadingStatus `json:"status"`
	}{plain: plain(ub), Status: ub.Status()})
}
