/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode identifies why a catalog or an assignment request was rejected.
type ErrorCode string

const (
	CodeMissingTarget        ErrorCode = "MISSING_TARGET"
	CodeDuplicateTarget      ErrorCode = "DUPLICATE_TARGET"
	CodeDuplicateAccomplice  ErrorCode = "DUPLICATE_ACCOMPLICE"
	CodeNoRegularRoles       ErrorCode = "NO_REGULAR_ROLES"
	CodeDuplicateRole        ErrorCode = "DUPLICATE_ROLE"
	CodeUnknownRole          ErrorCode = "UNKNOWN_ROLE"
	CodeInvalidPair          ErrorCode = "INVALID_PAIR"
	CodeInvalidObjective     ErrorCode = "INVALID_OBJECTIVE"
	CodeInvalidScoring       ErrorCode = "INVALID_SCORING"
	CodeNoPlayers            ErrorCode = "NO_PLAYERS"
	CodeDuplicatePlayer      ErrorCode = "DUPLICATE_PLAYER"
	CodeRegularPoolExhausted ErrorCode = "REGULAR_POOL_EXHAUSTED"
)

// ConfigurationError reports a catalog or assignment precondition violation.
// It never describes a transient failure, so callers should abort the game
// start rather than retry.
type ConfigurationError struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]string
}

func (e *ConfigurationError) Error() string {
	if len(e.Metadata) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Metadata[k])
	}

	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// Is matches another *ConfigurationError by code, so callers can write
// errors.Is(err, &ConfigurationError{Code: CodeMissingTarget}).
func (e *ConfigurationError) Is(target error) bool {
	t, ok := target.(*ConfigurationError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// IsConfigurationError reports whether err carries a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

func configErr(code ErrorCode, message string, kv ...string) *ConfigurationError {
	err := &ConfigurationError{
		Code:    code,
		Message: message,
	}

	if len(kv) > 0 {
		err.Metadata = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			err.Metadata[kv[i]] = kv[i+1]
		}
	}

	return err
}
