package authcode

import "errors"

var CodeNotFoundErr = errors.New("authorization code not found")
