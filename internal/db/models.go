package db

import "time"

// ShortURL maps a short code to the URL it redirects to. Rows are never
// updated or deleted; expiry is evaluated at read time.
type ShortURL struct {
	ID          uint64    `gorm:"primary_key" json:"id"`
	OriginalURL string    `gorm:"column:original_url;not null" json:"originalUrl"`
	ShortCode   string    `gorm:"column:short_code;unique_index;not null" json:"shortCode"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null" json:"expiresAt"`
}

func (ShortURL) TableName() string { return "urls" }

// ExpiredAt reports whether the entry is past its expiry at now.
func (u *ShortURL) ExpiredAt(now time.Time) bool {
	return u.ExpiresAt.Before(now)
}

// Click is one recorded redirect of a ShortURL.
type Click struct {
	ID        uint64    `gorm:"primary_key"`
	URLID     uint64    `gorm:"column:url_id;index;not null"`
	Timestamp time.Time `gorm:"column:timestamp;not null"`
	Referrer  string    `gorm:"column:referrer"`
	IPAddress string    `gorm:"column:ip_address"`
	Country   string    `gorm:"column:country"`
	Region    string    `gorm:"column:region"`
	City      string    `gorm:"column:city"`
}

func (Click) TableName() string { return "clicks" }
