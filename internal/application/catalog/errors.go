package catalog

import "errors"

// ErrAllSourcesFailed is returned when every configured source failed
var ErrAllSourcesFailed = errors.New("catalog: all data sources failed")
