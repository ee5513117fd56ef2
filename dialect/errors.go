package dialect

import (
	"errors"
	"strconv"
	"sync"
)

// ErrorCode is the driver-reported identity of a database error: the ANSI
// SQLSTATE, the vendor's numeric code, or both.
type ErrorCode struct {
	SQLState string
	Vendor   int
}

func (c ErrorCode) IsZero() bool {
	return c.SQLState == "" && c.Vendor == 0
}

func (c ErrorCode) String() string {
	switch {
	case c.SQLState != "" && c.Vendor != 0:
		return c.SQLState + "/" + strconv.Itoa(c.Vendor)
	case c.SQLState != "":
		return c.SQLState
	case c.Vendor != 0:
		return strconv.Itoa(c.Vendor)
	}
	return "unknown"
}

// CodeExtractor pulls an ErrorCode out of a driver error.
type CodeExtractor func(err error) (ErrorCode, bool)

var extractors struct {
	sync.RWMutex
	list []CodeExtractor
}

// RegisterCodeExtractor adds fn to the extractors consulted by CodeOf.
// Driver providers call this from init.
func RegisterCodeExtractor(fn CodeExtractor) {
	extractors.Lock()
	defer extractors.Unlock()
	extractors.list = append(extractors.list, fn)
}

type sqlStater interface {
	SQLState() string
}

// CodeOf returns the code carried by err. Registered extractors run first;
// any error in the chain exposing SQLState() is the fallback.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrorCode{}
	}

	extractors.RLock()
	list := extractors.list
	extractors.RUnlock()

	for _, fn := range list {
		if code, ok := fn(err); ok {
			return code
		}
	}

	var s sqlStater
	if errors.As(err, &s) {
		return ErrorCode{SQLState: s.SQLState()}
	}
	return ErrorCode{}
}
