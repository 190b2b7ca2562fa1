package core

type (
	// Handler receives the payload published on a topic.
	Handler func(payload interface{})

	// MessageBus is the publish/subscribe boundary between components.
	// Subscribe returns a func that removes the subscription.
	MessageBus interface {
		Publish(topic string, payload interface{})
		Subscribe(topic string, handler Handler) (unsubscribe func())
	}
)
