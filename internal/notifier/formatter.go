package notifier

import (
	"fmt"
	"strings"
)

// StartedMessage announces a run that is about to hand count products off.
func StartedMessage(name string, count int) Message {
	return Message{
		Subject: fmt.Sprintf("%s started: %d products", name, count),
		Body:    fmt.Sprintf("%s has started.\n\nTotal products to process: %d\n", name, count),
	}
}

// ErrorMessage reports a failed stage. details is appended when non-empty.
func ErrorMessage(name, title string, err error, details string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "An error occurred in %s.\n\n", name)
	fmt.Fprintf(&b, "Title: %s\n\n", title)
	if err != nil {
		b.WriteString(err.Error())
	} else {
		b.WriteString("unknown error")
	}
	if details != "" {
		fmt.Fprintf(&b, "\n\nDetails:\n%s", details)
	}
	b.WriteString("\n")

	return Message{
		Subject: fmt.Sprintf("%s error: %s", name, title),
		Body:    b.String(),
	}
}

// TestMessage is sent by the test-email endpoint.
func TestMessage(name string, to []string) Message {
	return Message{
		Subject: fmt.Sprintf("%s test email", name),
		Body:    fmt.Sprintf("This is a test email from %s.\n", name),
		To:      to,
	}
}
