// Package notify pushes run completion notes through shoutrrr services
// (telegram, discord, webhooks and the rest of the router's catalog).
package notify

import (
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
)

const sendTimeout = 10 * time.Second

// Sender fans one message out to every configured service URL.
type Sender struct {
	services []string // URL schemes only, the full URLs embed credentials
	router   *router.ServiceRouter
}

// New builds a sender from the configured service URLs. The URLs are
// validated here so a bad scheme fails at startup, not at the first run.
func New(settings *conf.Settings) (*Sender, error) {
	urls := settings.Notification.URLs
	if len(urls) == 0 {
		return nil, errors.Newf("notifications enabled without any service URLs").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(err).
			Component("notify").
			Category(errors.CategoryConfiguration).
			Context("services", strings.Join(serviceNames(urls), ",")).
			Build()
	}
	sender.Timeout = sendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &Sender{
		services: serviceNames(urls),
		router:   sender,
	}, nil
}

// Services lists the configured service schemes.
func (s *Sender) Services() []string {
	return s.services
}

// Send delivers one titled message to every configured service. Partial
// failures return the first error with the failure count attached.
func (s *Sender) Send(title, message string) error {
	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	var first error
	failed := 0
	for _, err := range s.router.Send(message, &params) {
		if err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return errors.New(first).
			Component("notify").
			Category(errors.CategoryNotification).
			Context("services", strings.Join(s.services, ",")).
			Context("failed", failed).
			Build()
	}
	return nil
}

// serviceNames reduces service URLs to their schemes. Full URLs routinely
// carry tokens or chat ids, so only the scheme may appear in logs and
// errors.
func serviceNames(urls []string) []string {
	names := make([]string, 0, len(urls))
	for _, u := range urls {
		name := u
		if idx := strings.Index(u, "://"); idx >= 0 {
			name = u[:idx]
		}
		names = append(names, name)
	}
	return names
}
