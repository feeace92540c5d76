package model

// LogLevel is the severity of a strategy log line
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// StrategyLog is one log line emitted by a strategy run. Timestamp is set by
// the server in milliseconds when the row is inserted.
type StrategyLog struct {
	ID         int64    `json:"id" db:"id"`
	StrategyID int64    `json:"strategyId" db:"strategy_id"`
	Level      LogLevel `json:"level" db:"level"`
	Message    string   `json:"message" db:"message"`
	Data       RawJSON  `json:"data" db:"data"`
	Timestamp  int64    `json:"timestamp" db:"timestamp"`
}

// StrategyLogCreate represents data for creating or replacing a log line
type StrategyLogCreate struct {
	StrategyID int64    `json:"strategyId" validate:"required,gt=0"`
	Level      LogLevel `json:"level" validate:"required,oneof=debug info warn error"`
	Message    string   `json:"message" validate:"required,max=4096"`
	Data       RawJSON  `json:"data"`
}

// Changes implements Payload
func (p StrategyLogCreate) Changes() Changes {
	return Changes{Columns: map[string]interface{}{
		"strategy_id": p.StrategyID,
		"level":       string(p.Level),
		"message":     p.Message,
		"data":        p.Data,
	}}
}

// StrategyLogPatch represents a partial log line update
type StrategyLogPatch struct {
	Level   *LogLevel `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message *string   `json:"message" validate:"omitempty,min=1,max=4096"`
	Data    RawJSON   `json:"data"`
}

// Changes implements Payload
func (p StrategyLogPatch) Changes() Changes {
	cols := map[string]interface{}{}
	if p.Level != nil {
		cols["level"] = string(*p.Level)
	}
	if p.Message != nil {
		cols["message"] = *p.Message
	}
	if p.Data != nil {
		cols["data"] = p.Data
	}
	return Changes{Columns: cols}
}

// RowID implements Row
func (s StrategyLog) RowID() int64 {
	return s.ID
}
