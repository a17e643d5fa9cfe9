package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"stockaudit/internal/app/client/config"
	"stockaudit/internal/domain/audit"
	"stockaudit/internal/infrastructure/migration"
)

// App — клиентское приложение терминала сбора данных: локальное
// хранилище, удалённый сервис и движок синхронизации под одной крышей.
type App struct {
	config      *config.Config
	log         *slog.Logger
	remote      Remote
	storage     Storage
	syncService *SyncService
	state       *AppState

	authenticated bool
	cancel        context.CancelFunc
	mu            gosync.RWMutex
}

// AppState хранит состояние устройства между запусками
type AppState struct {
	OwnerID         string    `json:"user_id"`
	AuditorMat      string    `json:"mat_aud"`
	AuditorName     string    `json:"nome_aud"`
	ActiveLocation  int       `json:"cd_ativo"`
	ActiveVolumeKey string    `json:"active_volume_key"`
	LastSync        time.Time `json:"last_sync"`
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg)
	if err != nil {
		log.Warn("Не удалось загрузить состояние приложения", "error", err)
		state = &AppState{}
	}

	// Накатываем схему локальной базы
	mg := migration.NewMigration(cfg, migration.DefaultEngine)
	if err := mg.Up(); err != nil {
		return nil, fmt.Errorf("ошибка миграции локальной базы: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	remote, err := NewHTTPClient(cfg, log)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	app := &App{
		config:  cfg,
		log:     log,
		remote:  remote,
		storage: storage,
		state:   state,
	}
	app.syncService = NewSyncService(storage, remote, cfg, log)

	// Чистим устаревшие синхронизированные данные при старте
	if state.OwnerID != "" {
		cutoff := time.Now().AddDate(0, 0, -cfg.RecordTTLDays)
		if n, err := storage.EvictExpired(state.OwnerID, cutoff); err != nil {
			log.Warn("Не удалось удалить устаревшие записи", "error", err)
		} else if n > 0 {
			log.Debug("Удалены устаревшие записи", "count", n)
		}
	}

	// Загружаем токен если он есть
	if token, err := app.GetToken(); err == nil && token != "" {
		remote.SetToken(token)
		app.authenticated = true
		log.Debug("Токен загружен из файла")
	}

	return app, nil
}

func loadAppState(cfg *config.Config) (*AppState, error) {
	data, err := os.ReadFile(cfg.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &AppState{}, nil
		}
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("ошибка парсинга состояния: %w", err)
	}
	return &state, nil
}

func (a *App) saveAppState() error {
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации состояния: %w", err)
	}
	return os.WriteFile(a.config.StatePath, data, 0600)
}

// CheckConnection проверяет доступность сервера
func (a *App) CheckConnection(ctx context.Context) error {
	return a.remote.HealthCheck(ctx)
}

// IsAuthenticated сообщает, есть ли у устройства действующий токен
func (a *App) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.authenticated
}

// GetToken читает токен из файла
func (a *App) GetToken() (string, error) {
	data, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveToken сохраняет токен в файл
func (a *App) SaveToken(token string) error {
	return os.WriteFile(a.config.TokenPath, []byte(token), 0600)
}

// ClearToken удаляет файл токена
func (a *App) ClearToken() error {
	err := os.Remove(a.config.TokenPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Login авторизуется на сервере и запоминает сессию владельца.
// Смена владельца стирает локальные данные предыдущего.
func (a *App) Login(ctx context.Context, login, password string) (*Session, error) {
	sess, err := a.remote.Login(ctx, login, password)
	if err != nil {
		return nil, fmt.Errorf("ошибка авторизации: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.OwnerID != "" && a.state.OwnerID != sess.UserID {
		a.log.Info("Смена владельца устройства, очистка локальных данных",
			"previous", a.state.OwnerID, "next", sess.UserID)
		if err := a.storage.ClearOwnerData(a.state.OwnerID); err != nil {
			return nil, fmt.Errorf("очистка данных предыдущего владельца: %w", err)
		}
		a.state.ActiveVolumeKey = ""
	}

	a.state.OwnerID = sess.UserID
	a.state.AuditorMat = sess.AuditorMat
	a.state.AuditorName = sess.AuditorName
	if a.state.ActiveLocation == 0 && len(sess.Locations) > 0 {
		a.state.ActiveLocation = sess.Locations[0].Location
	}

	if err := a.SaveToken(sess.Token); err != nil {
		return nil, fmt.Errorf("сохранение токена: %w", err)
	}
	if err := a.saveAppState(); err != nil {
		return nil, fmt.Errorf("сохранение состояния: %w", err)
	}

	a.authenticated = true
	return sess, nil
}

// Logout завершает сессию. Локальная очередь остаётся: несинхронизированные
// данные переживают выход и уйдут после следующего входа того же владельца.
func (a *App) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ClearToken(); err != nil {
		return fmt.Errorf("удаление токена: %w", err)
	}
	a.remote.SetToken("")
	a.authenticated = false
	return nil
}

// OwnerID — владелец устройства из сохранённого состояния
func (a *App) OwnerID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.OwnerID
}

// ActiveLocation — выбранный распределительный центр
func (a *App) ActiveLocation() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.ActiveLocation
}

// SetActiveLocation переключает рабочий ЦД
func (a *App) SetActiveLocation(location int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.ActiveLocation = location
	return a.saveAppState()
}

// Sync запускает явный прогон синхронизации с повтором error-записей
func (a *App) Sync(ctx context.Context) (*SyncResult, error) {
	res, err := a.syncService.Run(ctx, SyncOptions{
		OwnerID:     a.OwnerID(),
		RetryErrors: true,
	})
	if res != nil {
		a.mu.Lock()
		a.state.LastSync = res.EndTime
		if saveErr := a.saveAppState(); saveErr != nil {
			a.log.Warn("Не удалось сохранить состояние", "error", saveErr)
		}
		a.mu.Unlock()
	}
	return res, err
}

// StartAutoSync включает фоновые прогоны до вызова Shutdown
func (a *App) StartAutoSync() {
	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	a.syncService.StartAutoSync(ctx, a.OwnerID())
}

// GetSyncService отдаёт движок синхронизации (для CLI-команд)
func (a *App) GetSyncService() *SyncService {
	return a.syncService
}

// PendingSummary — сводка несинхронизированного для бейджа
func (a *App) PendingSummary() (audit.PendingSummary, error) {
	return a.storage.PendingSummary(a.OwnerID())
}

// Preferences возвращает настройки текущего владельца
func (a *App) Preferences() (audit.Preferences, error) {
	return a.storage.GetPreferences(a.OwnerID())
}

// SavePreferences сохраняет настройки текущего владельца
func (a *App) SavePreferences(prefs audit.Preferences) error {
	return a.storage.SavePreferences(a.OwnerID(), prefs)
}

// LocationOptions — доступные ЦД с сервера
func (a *App) LocationOptions(ctx context.Context) ([]audit.LocationOption, error) {
	return a.remote.LocationOptions(ctx)
}

// Shutdown останавливает фоновую синхронизацию и закрывает хранилище
func (a *App) Shutdown() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()

	if err := a.storage.Close(); err != nil {
		a.log.Warn("Ошибка закрытия хранилища", "error", err)
	}
}
