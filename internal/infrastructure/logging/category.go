package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Room            Category = "Room"
	Sqlite          Category = "Sqlite"
	MongoDB         Category = "MongoDB"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	Tracing         Category = "Tracing"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	ExternalService SubCategory = "ExternalService"

	// Room lifecycle
	Create         SubCategory = "Create"
	Join           SubCategory = "Join"
	Leave          SubCategory = "Leave"
	Update         SubCategory = "Update"
	Dissolve       SubCategory = "Dissolve"
	VerifyPassword SubCategory = "VerifyPassword"
	Restore        SubCategory = "Restore"
	Janitor        SubCategory = "Janitor"
	Audit          SubCategory = "Audit"

	// IO
	Select  SubCategory = "Select"
	Insert  SubCategory = "Insert"
	Delete  SubCategory = "Delete"
	Migrate SubCategory = "Migrate"
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"
	Api     SubCategory = "Api"
	Recover SubCategory = "Recover"

	// Transport
	RateLimiting SubCategory = "RateLimiting"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestID    ExtraKey = "RequestId"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"

	RoomID        ExtraKey = "RoomId"
	ParticipantID ExtraKey = "ParticipantId"
	OperatorID    ExtraKey = "OperatorId"
	Capacity      ExtraKey = "Capacity"
	MemberCount   ExtraKey = "MemberCount"
	EventType     ExtraKey = "EventType"
	Count         ExtraKey = "Count"
)
