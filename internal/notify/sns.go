package notify

import (
	"context"
	"fmt"
)

type topicPublisher interface {
	Publish(ctx context.Context, subject, message string) error
}

// SNS sends notifications to a topic whose subscribers form the
// distribution list.
type SNS struct {
	pub topicPublisher
}

func NewSNS(pub topicPublisher) *SNS { return &SNS{pub: pub} }

func (s *SNS) Notify(ctx context.Context, n Notification) error {
	if err := s.pub.Publish(ctx, n.Subject, n.Body()); err != nil {
		return fmt.Errorf("sns notify: %w", err)
	}
	return nil
}
