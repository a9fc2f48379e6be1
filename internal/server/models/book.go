package models

import "time"

type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ISBN        string    `json:"isbn"`
	Tags        []string  `json:"tags"`
	QuickLink   string    `json:"quickLink"`
	CreatedByID int64     `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
}
