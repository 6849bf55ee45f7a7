package notify

import (
	"context"
	"log/slog"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"
)

// Dispatcher sends push notifications best-effort. Failures are logged and
// swallowed: nothing in the checkout path may ever wait on or roll back
// because of a notification.
type Dispatcher struct {
	client *messaging.Client
	log    *slog.Logger
}

// NewDispatcher connects to FCM. With an empty credentials path the
// dispatcher runs disabled, which is how tests and local dev operate.
func NewDispatcher(credentialsFile string, log *slog.Logger) (*Dispatcher, error) {
	d := &Dispatcher{log: log}
	if credentialsFile == "" {
		log.Warn("FCM credentials not configured, notifications disabled")
		return d, nil
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, err
	}
	d.client = client
	return d, nil
}

// Send pushes one message to a device token. Errors are logged, never
// returned.
func (d *Dispatcher) Send(token, title, body string, data map[string]string) {
	if d.client == nil || token == "" {
		return
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := d.client.Send(context.Background(), message); err != nil {
		d.log.Warn("notification send failed", slog.String("error", err.Error()))
	}
}

// SendAsync fires Send on its own goroutine so the caller never blocks.
func (d *Dispatcher) SendAsync(token, title, body string, data map[string]string) {
	go d.Send(token, title, body, data)
}
