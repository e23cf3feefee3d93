// Package notify turns push payloads into system notifications via a thin
// host-facing interface. Display is fire-and-forget; no retries apply.
package notify

import "github.com/rs/zerolog"

const (
	notificationTitle = "Smart Expense Tracker"
	defaultBody       = "New expense notification"

	ActionView    = "view"
	ActionDismiss = "dismiss"
)

// Action is one button on a displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is a display request handed to the host.
type Notification struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	URL     string   `json:"url"`
	Actions []Action `json:"actions"`
}

// Displayer shows a notification through the host environment.
type Displayer interface {
	Display(n Notification) error
}

// WindowOpener opens or focuses a window at a URL.
type WindowOpener interface {
	OpenWindow(url string) error
}

// LogDisplayer logs notifications instead of displaying them; the default
// when no host integration is wired.
type LogDisplayer struct {
	Log zerolog.Logger
}

func (d LogDisplayer) Display(n Notification) error {
	d.Log.Info().Str("title", n.Title).Str("body", n.Body).Msg("notification")
	return nil
}

// Service decodes push payloads and routes clicks.
type Service struct {
	display Displayer
	opener  WindowOpener
	log     zerolog.Logger
}

func NewService(display Displayer, opener WindowOpener, log zerolog.Logger) *Service {
	return &Service{display: display, opener: opener, log: log}
}

// Push builds a notification from a text payload (or the default message)
// and requests display. Display failures are logged only.
func (s *Service) Push(payload []byte) Notification {
	body := string(payload)
	if body == "" {
		body = defaultBody
	}
	n := Notification{
		Title: notificationTitle,
		Body:  body,
		URL:   "/",
		Actions: []Action{
			{Action: ActionView, Title: "View"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
	}
	if s.display != nil {
		if err := s.display.Display(n); err != nil {
			s.log.Warn().Err(err).Msg("notification display failed")
		}
	}
	return n
}

// Click handles a notification click: the view action opens the target
// URL, anything else just dismisses.
func (s *Service) Click(action, url string) {
	if action != ActionView || s.opener == nil {
		return
	}
	if url == "" {
		url = "/"
	}
	if err := s.opener.OpenWindow(url); err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("open window failed")
	}
}
