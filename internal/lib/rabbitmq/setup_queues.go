package rabbitmq

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.report", RoutingKey: "report_ready"},
		{QueueName: "notification.verify_email", RoutingKey: "verify_email"},
		{QueueName: "notification.otp", RoutingKey: "otp_code"},
		{QueueName: "notification.password_reset", RoutingKey: "password_reset"},
	}
}
