package workflow

// Notifier surfaces user-visible notices. It replaces the blocking alert
// dialogs of the browser application: the contract is only that the message
// is shown and execution does not silently continue.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Failure(msg string)
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Info(string)    {}
func (NopNotifier) Success(string) {}
func (NopNotifier) Failure(string) {}
