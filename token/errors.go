package token

import "errors"

var PairNotFoundErr = errors.New("token pair not found")
