package logx

import "time"

// Logger is the structured logger every component receives.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field is a single key-value pair attached to an entry.
type Field struct {
	Key   string
	Value any
}

// Keys shared by every component that logs about orders, couriers and live sessions.
const (
	KeyOrderID    = "order_id"
	KeyCourierID  = "courier_id"
	KeyBusinessID = "business_id"
	KeySessionID  = "session_id"
	KeyTopic      = "topic"
)

func Any(key string, value any) Field                { return Field{Key: key, Value: value} }
func String(key, value string) Field                 { return Field{Key: key, Value: value} }
func Int(key string, value int) Field                { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field            { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field        { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field              { return Field{Key: key, Value: value} }
func Time(key string, value time.Time) Field         { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err holds the error text under "err", or nil when err is nil.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "err", Value: nil}
	}
	return Field{Key: "err", Value: err.Error()}
}

func OrderID(id string) Field    { return String(KeyOrderID, id) }
func CourierID(id string) Field  { return String(KeyCourierID, id) }
func BusinessID(id string) Field { return String(KeyBusinessID, id) }
func SessionID(id string) Field  { return String(KeySessionID, id) }
func Topic(name string) Field    { return String(KeyTopic, name) }
