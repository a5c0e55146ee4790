package models

import "errors"

var errMemoType = errors.New("memoised value has unexpected type")
