package core

// Logger is the application-wide structured logger. Implementations may ship
// entries to an external error tracker; a user.User argument identifies the
// logged-in user on error reports.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
