package arch

// Sample returns a reference architecture for a realtime chat product.
// It is used by `archflow sample`, demos and tests.
func Sample() *Architecture {
	return &Architecture{
		ProjectName: "Realtime Chat",
		Nodes: []Node{
			{ID: "web_client", Label: "Web Client", Type: TypeFrontend, Service: "React App", Provider: "Open-source"},
			{ID: "mobile_client", Label: "Mobile Client", Type: TypeFrontend, Service: "React Native / Flutter", Provider: "Open-source"},
			{ID: "cdn", Label: "CDN", Type: TypeCloud, Service: "CloudFront", Provider: "AWS"},
			{ID: "load_balancer", Label: "Load Balancer", Type: TypeCloud, Service: "ALB", Provider: "AWS"},
			{ID: "api_gateway", Label: "API Gateway", Type: TypeCloud, Service: "API Gateway (REST/WS)", Provider: "AWS"},
			{ID: "auth_service", Label: "Auth Service", Type: TypeBackend, Service: "Node.js / Go", Provider: "AWS ECS"},
			{ID: "user_service", Label: "User Service", Type: TypeBackend, Service: "Node.js / Go", Provider: "AWS ECS"},
			{ID: "messaging_service", Label: "Messaging Service", Type: TypeBackend, Service: "Node.js / Go (WS)", Provider: "AWS ECS"},
			{ID: "presence_service", Label: "Presence Service", Type: TypeBackend, Service: "Node.js / Go", Provider: "AWS ECS"},
			{ID: "media_service", Label: "Media Service", Type: TypeBackend, Service: "Node.js / Go", Provider: "AWS ECS"},
			{ID: "notification_service", Label: "Notification Service", Type: TypeBackend, Service: "Node.js / Go", Provider: "AWS ECS"},
			{ID: "user_db", Label: "User / Metadata DB", Type: TypeDatabase, Service: "PostgreSQL", Provider: "AWS RDS"},
			{ID: "message_db", Label: "Message Content DB", Type: TypeDatabase, Service: "DynamoDB", Provider: "AWS"},
			{ID: "cache", Label: "Cache", Type: TypeCache, Service: "Redis", Provider: "AWS ElastiCache"},
			{ID: "message_queue", Label: "Message Queue", Type: TypeQueue, Service: "SQS", Provider: "AWS"},
			{ID: "object_storage", Label: "Object Storage", Type: TypeStorage, Service: "S3", Provider: "AWS"},
			{ID: "external_push_notifications", Label: "APNS / FCM", Type: TypeExternal, Service: "Push Notification", Provider: "Apple / Google"},
		},
		Edges: []Edge{
			{Source: "web_client", Target: "cdn"},
			{Source: "mobile_client", Target: "cdn"},
			{Source: "cdn", Target: "load_balancer"},
			{Source: "load_balancer", Target: "api_gateway"},
			{Source: "api_gateway", Target: "auth_service"},
			{Source: "api_gateway", Target: "user_service"},
			{Source: "api_gateway", Target: "messaging_service"},
			{Source: "api_gateway", Target: "presence_service"},
			{Source: "api_gateway", Target: "media_service"},
			{Source: "auth_service", Target: "user_db"},
			{Source: "auth_service", Target: "cache"},
			{Source: "user_service", Target: "user_db"},
			{Source: "user_service", Target: "cache"},
			{Source: "messaging_service", Target: "message_queue"},
			{Source: "messaging_service", Target: "message_db"},
			{Source: "messaging_service", Target: "cache"},
			{Source: "messaging_service", Target: "presence_service"},
			{Source: "presence_service", Target: "cache"},
			{Source: "media_service", Target: "object_storage"},
			{Source: "media_service", Target: "user_db"},
			{Source: "message_queue", Target: "messaging_service"},
			{Source: "message_queue", Target: "notification_service"},
			{Source: "notification_service", Target: "user_db"},
			{Source: "notification_service", Target: "external_push_notifications"},
		},
		CloudEstimation: CloudCost{
			Compute:              "$180",
			Database:             "$280",
			Storage:              "$70",
			OtherServices:        "$120",
			EstimatedMonthlyCost: "$650",
		},
	}
}
