package volume

import "errors"

var (
	// ErrVolumeNotFound — сессия не найдена в локальном хранилище
	ErrVolumeNotFound = errors.New("volume session not found")
	// ErrVolumeReadOnly — сессия закрыта для изменений
	ErrVolumeReadOnly = errors.New("volume session is read-only")
	// ErrVolumeActive — у владельца уже есть активная сессия
	ErrVolumeActive = errors.New("another volume session is active")
	// ErrNoActiveVolume — активной сессии нет
	ErrNoActiveVolume = errors.New("no active volume session")
	// ErrEmptyVolume — финализация без отсканированных позиций
	ErrEmptyVolume = errors.New("volume session has no items")
)
