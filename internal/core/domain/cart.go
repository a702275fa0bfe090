package domain

import "time"

type Cart struct {
	UserID    string
	Items     []LineItem
	UpdatedAt time.Time
}
