package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	RabbitMQ        Category = "RabbitMQ"
	MongoDB         Category = "MongoDB"
	Audit           Category = "Audit"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Audit pipeline
	Publish     SubCategory = "Publish"
	Consume     SubCategory = "Consume"
	Persistence SubCategory = "Persistence"
	Recovery    SubCategory = "Recovery"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
	RoutingKey   ExtraKey = "RoutingKey"
	ResourceType ExtraKey = "ResourceType"
	ResourceID   ExtraKey = "ResourceID"
	RecordID     ExtraKey = "RecordID"
	Queue        ExtraKey = "Queue"
	Deliveries   ExtraKey = "Deliveries"
)
