package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Land is a land-parcel record. Scalar fields are free text as entered by
// users; Polygons is replaced wholesale on every write.
type Land struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Size        string    `json:"size"`
	Owner       string    `json:"owner"`
	LandType    string    `json:"landType"`
	MarketValue string    `json:"marketValue"`
	Notes       string    `json:"notes"`
	Polygons    []Polygon `json:"polygons"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LandPatch is a partial update. Nil fields are left untouched.
type LandPatch struct {
	Title       *string    `json:"title,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Size        *string    `json:"size,omitempty"`
	Owner       *string    `json:"owner,omitempty"`
	LandType    *string    `json:"landType,omitempty"`
	MarketValue *string    `json:"marketValue,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Polygons    *[]Polygon `json:"polygons,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p LandPatch) Empty() bool {
	return p.Title == nil && p.Name == nil && p.Location == nil && p.Size == nil &&
		p.Owner == nil && p.LandType == nil && p.MarketValue == nil && p.Notes == nil &&
		p.Polygons == nil
}

// Apply merges the patch into l.
func (p LandPatch) Apply(l *Land) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&l.Title, p.Title)
	set(&l.Name, p.Name)
	set(&l.Location, p.Location)
	set(&l.Size, p.Size)
	set(&l.Owner, p.Owner)
	set(&l.LandType, p.LandType)
	set(&l.MarketValue, p.MarketValue)
	set(&l.Notes, p.Notes)
	if p.Polygons != nil {
		l.Polygons = ClonePolygons(*p.Polygons)
	}
}

// LandFilter narrows a land listing. Zero values disable a criterion except
// for the ranges, which are only applied when their Max is positive.
type LandFilter struct {
	Query    string
	Owner    string
	LandType string
	MinPrice int64
	MaxPrice int64
	MinSize  int64
	MaxSize  int64
	Offset   int
	Limit    int
}

// Match reports whether l satisfies every criterion of the filter.
func (f LandFilter) Match(l *Land) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Name), q) {
			return false
		}
	}
	if f.Owner != "" && l.Owner != f.Owner {
		return false
	}
	if f.LandType != "" && l.LandType != f.LandType {
		return false
	}
	return inRange(ParseAmount(l.MarketValue), f.MinPrice, f.MaxPrice) &&
		inRange(ParseAmount(l.Size), f.MinSize, f.MaxSize)
}

func inRange(v, lo, hi int64) bool {
	if v < lo {
		return false
	}
	return hi <= 0 || v <= hi
}

// ParseAmount reads a free-text amount such as "$12,500" or "300 m2" by
// dropping every non-digit. Text without digits parses as 0.
func ParseAmount(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// LandEventType enumerates change notifications.
type LandEventType string

const (
	LandCreated         LandEventType = "created"
	LandUpdated         LandEventType = "updated"
	LandPolygonsUpdated LandEventType = "polygons_updated"
	LandDeleted         LandEventType = "deleted"
)

// Known reports whether t is one of the event types above.
func (t LandEventType) Known() bool {
	switch t {
	case LandCreated, LandUpdated, LandPolygonsUpdated, LandDeleted:
		return true
	}
	return false
}

// LandEvent is published whenever a land record changes.
type LandEvent struct {
	Type         LandEventType `json:"type"`
	LandID       int64         `json:"land_id"`
	PolygonCount int           `json:"polygon_count"`
	Time         time.Time     `json:"time"`
}

// User is an account allowed to manage land records.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Type         string    `json:"type"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
