package config

import (
	"fmt"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/ferrors"
)

// ParseError is a config-level error carrying the position it occurred at,
// matching the line/column pair original_source/src/conf.c attaches to its
// own parse diagnostics.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// AsConfigError classifies a ParseError (or any error) under ferrors.KindConfig.
func AsConfigError(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ParseError); ok {
		return ferrors.Wrap(ferrors.KindConfig, pe.Error(), pe)
	}
	return ferrors.Wrap(ferrors.KindConfig, err.Error(), err)
}
