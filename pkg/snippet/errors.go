package snippet

import (
	"errors"
	"fmt"
)

// ErrDataLoad is matched by every *DataLoadError.
var ErrDataLoad = errors.New("snippet data load failed")

// DataLoadError reports missing or malformed snippet source data.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load snippet data: %v", e.Err)
	}
	return fmt.Sprintf("load snippet data from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

func (e *DataLoadError) Is(target error) bool {
	return target == ErrDataLoad
}
