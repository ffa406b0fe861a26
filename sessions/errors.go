package sessions

import "errors"

var SessionNotFoundErr = errors.New("session not found")
