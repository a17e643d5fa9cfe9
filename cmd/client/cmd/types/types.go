// cmd/client/cmd/types/types.go
package types

// ctxKey — закрытый тип ключей контекста команд,
// чтобы не пересекаться с чужими значениями.
type ctxKey string

// ClientAppKey — ключ, под которым setupApp кладет *client.App
// в контекст выполняемой команды.
const ClientAppKey ctxKey = "client.app"
