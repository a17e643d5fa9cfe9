package rpc

import (
	"errors"
	"fmt"
	"strings"
)

// Kind — категория ошибки удалённого сервиса. Движок синхронизации и UI
// принимают решения только по категории, никогда по тексту ошибки.
type Kind int

const (
	// KindTransient — сетевая или серверная ошибка, повтор на следующем запуске
	KindTransient Kind = iota
	// KindValidation — сервер отклонил данные, автоповтор бессмысленен
	KindValidation
	// KindNotFoundOrClosed — ресурс удалён или финализирован другим участником
	KindNotFoundOrClosed
	// KindConflictInUse — ресурс занят другой активной сессией
	KindConflictInUse
	// KindAuthExpired — сессия авторизации истекла
	KindAuthExpired
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFoundOrClosed:
		return "not_found_or_closed"
	case KindConflictInUse:
		return "conflict_in_use"
	case KindAuthExpired:
		return "auth_expired"
	default:
		return "transient"
	}
}

// Error — структурированная ошибка удалённого сервиса.
// Code — машинный код из конверта ответа (словарь исходного бэкенда).
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("сервер вернул статус %d", e.HTTPStatus)
}

// Коды ошибок удалённого сервиса. Словари разных модулей сервиса
// отображаются на одну и ту же таксономию.
var notFoundCodes = map[string]struct{}{
	"CONFERENCIA_NAO_ENCONTRADA_OU_FINALIZADA": {},
	"COLETA_NAO_ENCONTRADA":                    {},
	"VOLUME_NAO_ENCONTRADO":                    {},
}

var inUseCodes = map[string]struct{}{
	"VOLUME_EM_USO":             {},
	"CONFERENCIA_EM_USO":        {},
	"CONFERENCIA_AVULSA_EM_USO": {},
}

var authCodes = map[string]struct{}{
	"SESSAO_EXPIRADA": {},
	"NAO_AUTORIZADO":  {},
}

// Kind возвращает категорию ошибки по её коду и HTTP-статусу.
func (e *Error) Kind() Kind {
	if _, ok := notFoundCodes[e.Code]; ok {
		return KindNotFoundOrClosed
	}
	if _, ok := inUseCodes[e.Code]; ok {
		return KindConflictInUse
	}
	if _, ok := authCodes[e.Code]; ok {
		return KindAuthExpired
	}
	if strings.HasPrefix(e.Code, "VALIDACAO_") || strings.HasPrefix(e.Code, "VAL_") {
		return KindValidation
	}
	if e.HTTPStatus == 401 || e.HTTPStatus == 403 {
		return KindAuthExpired
	}
	if e.HTTPStatus == 422 || e.HTTPStatus == 400 {
		return KindValidation
	}
	return KindTransient
}

// Classify определяет категорию произвольной ошибки. Всё, что не является
// структурированной ошибкой сервиса (обрыв сети, таймаут, кривой JSON),
// считается временным сбоем и подлежит повтору.
func Classify(err error) Kind {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind()
	}
	return KindTransient
}
