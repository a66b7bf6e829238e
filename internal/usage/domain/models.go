package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Entry is one append-only record of an API key authenticated request.
type Entry struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	KeyID      snowflake.ID `gorm:"column:key_id;not null;index:idx_usage_key_created,priority:1"`
	UserID     snowflake.ID `gorm:"column:user_id;not null;index:idx_usage_user_created,priority:1"`
	Endpoint   string       `gorm:"column:endpoint;type:text;not null"`
	Method     string       `gorm:"column:method;type:text;not null"`
	IPAddress  string       `gorm:"column:ip_address;type:text"`
	StatusCode int          `gorm:"column:status_code;not null"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null;index:idx_usage_key_created,priority:2;index:idx_usage_user_created,priority:2"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "api_key_usage_log" }

type EntryView struct {
	KeyID      string    `json:"key_id"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	IPAddress  string    `json:"ip_address"`
	StatusCode int       `json:"status_code"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e *Entry) View() EntryView {
	return EntryView{
		KeyID:      e.KeyID.String(),
		Endpoint:   e.Endpoint,
		Method:     e.Method,
		IPAddress:  e.IPAddress,
		StatusCode: e.StatusCode,
		CreatedAt:  e.CreatedAt,
	}
}

// Filter narrows a usage query. Zero values do not filter.
type Filter struct {
	KeyID      snowflake.ID `form:"-"`
	Method     string       `form:"method"`
	StatusCode int          `form:"status_code"`
	Since      *time.Time   `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until      *time.Time   `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
}

type QueryResult struct {
	Logs   []EntryView `json:"logs"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type ActivityEntry struct {
	EntryView
	KeyName   string `json:"key_name"`
	KeyPrefix string `json:"key_prefix"`
}
