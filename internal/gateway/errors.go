package gateway

import "fmt"

// AuthenticationError — Discord отверг токен. Не повторяется.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("discord rejected the token: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// SessionError — сбой транспорта. Fatal=true означает, что клиент сам
// больше не переподключится.
type SessionError struct {
	Op    string
	Err   error
	Fatal bool
}

func (e *SessionError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("discord session %s: fatal: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("discord session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
