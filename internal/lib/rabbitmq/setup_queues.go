package rabbitmq

// Очередь и ключ маршрутизации уведомлений об активации платного плана.
const (
	ActivatedQueue      = "notifications.activated"
	ActivatedRoutingKey = "subscription.activated"
)

// QueueConfig очередь и ключ, с которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые объявляет воркер уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ActivatedQueue, RoutingKey: ActivatedRoutingKey},
	}
}
