package insight

import "errors"

var (
	ErrInsightNotFound = errors.New("insight not found")
	ErrNotDismissable  = errors.New("insight cannot be dismissed")
	ErrNoReadState     = errors.New("insight has no read state")
	ErrInvalidFilter   = errors.New("invalid insight filter")
)
