package rpc

import "encoding/json"

// Envelope — стандартный конверт ответа удалённого RPC-сервиса.
// Статус "Error" сопровождается кодом ошибки и человекочитаемым текстом.
type Envelope struct {
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// StatusError значение поля Status при ошибке сервиса
const StatusError = "Error"
