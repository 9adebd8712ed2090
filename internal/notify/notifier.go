// Package notify carries the welcome-notification port. Delivery transport
// is out of scope; the default implementation only records the dispatch.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"projectboard/internal/domain"
)

// WelcomeSubject is the subject line of the welcome message.
const WelcomeSubject = "Welcome to Projects!"

// Notifier dispatches a one-time welcome notification for a newly created
// user. Implementations must tolerate being called from a goroutine.
type Notifier interface {
	SendWelcome(ctx context.Context, user *domain.User) error
}

// LogNotifier records welcome dispatches to the application log. It stands
// in for a real mail transport.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendWelcome(ctx context.Context, user *domain.User) error {
	n.logger.WithFields(logrus.Fields{
		"email":   user.Email,
		"subject": WelcomeSubject,
	}).Infof("welcome notification for %s", user.Name())
	return nil
}
