package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

type pageQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

func (q pageQuery) pagination() pagination.Pagination {
	return pagination.Pagination{
		PageToken: strings.TrimSpace(q.PageToken),
		PageSize:  q.PageSize,
	}
}

// optional parses a trimmed query value, returning nil when it is absent.
func optional[T any](value string, parse func(string) (T, error)) (*T, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := parse(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseFloat64(value string) (float64, error) {
	return strconv.ParseFloat(value, 64)
}

// dayBound accepts RFC 3339 or a bare date. A bare date becomes the first
// instant of that UTC day, or its last when end is set.
func dayBound(end bool) func(string) (time.Time, error) {
	return func(value string) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t, nil
		}
		day, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
		if err != nil {
			return time.Time{}, errors.New("invalid_time")
		}
		if end {
			return day.Add(24*time.Hour - time.Nanosecond), nil
		}
		return day, nil
	}
}

// timeRange reads the optional <name>_from and <name>_to query parameters.
func timeRange(c *gin.Context, name string) (*time.Time, *time.Time, error) {
	from, err := optional(c.Query(name+"_from"), dayBound(false))
	if err != nil {
		return nil, nil, newValidationError(name+"_from", "invalid_"+name+"_from", "invalid "+name+"_from")
	}
	to, err := optional(c.Query(name+"_to"), dayBound(true))
	if err != nil {
		return nil, nil, newValidationError(name+"_to", "invalid_"+name+"_to", "invalid "+name+"_to")
	}
	return from, to, nil
}
