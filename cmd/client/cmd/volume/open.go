// cmd/client/cmd/volume/open.go
package volume

import (
	"errors"
	"fmt"
	"strconv"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"
	domain "stockaudit/internal/domain/volume"

	"github.com/spf13/cobra"
)

var OpenCmd = &cobra.Command{
	Use:   "open <номер>",
	Short: "Открыть объём",
	Long: `Открывает сессию конференции объёма. При недоступном сервере
сессия создаётся локально и будет открыта на сервере при первой
синхронизации. Объём, занятый другим аудитором, открыть нельзя.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		volumeNo, err := strconv.Atoi(args[0])
		if err != nil || volumeNo <= 0 {
			return fmt.Errorf("некорректный номер объёма: %q", args[0])
		}

		v, err := app.OpenVolume(cmd.Context(), volumeNo)
		if err != nil {
			if errors.Is(err, domain.ErrVolumeActive) {
				return fmt.Errorf("уже есть активный объём, завершите или отмените его")
			}
			return fmt.Errorf("ошибка открытия объёма: %w", err)
		}

		if v.RemoteID == "" {
			fmt.Println("⚠️  Сервер недоступен, объём открыт локально")
		}
		fmt.Println("✅ Объём открыт")
		printVolume(v)

		return nil
	},
}
