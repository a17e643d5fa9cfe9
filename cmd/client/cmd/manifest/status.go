// cmd/client/cmd/manifest/status.go
package manifest

import (
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/spf13/cobra"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние справочных кэшей",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		meta, err := app.ManifestStatus()
		if err != nil {
			return fmt.Errorf("ошибка чтения манифеста: %w", err)
		}
		if meta == nil {
			fmt.Println("Манифест: не загружен")
		} else {
			fmt.Printf("Манифест: %d позиций, дата %s, загружен %s\n",
				meta.ItemCount, meta.RefDate, meta.FetchedAt.Format("2006-01-02 15:04"))
		}

		bcMeta, err := app.BarcodeCacheStatus()
		if err != nil {
			return fmt.Errorf("ошибка чтения кэша штрихкодов: %w", err)
		}
		if bcMeta == nil {
			fmt.Println("Кэш штрихкодов: не загружен")
		} else {
			fmt.Printf("Кэш штрихкодов: %d строк\n", bcMeta.RowCount)
			if !bcMeta.LastFullAt.IsZero() {
				fmt.Printf("  Полная загрузка: %s\n", bcMeta.LastFullAt.Format("2006-01-02 15:04"))
			}
			if !bcMeta.LastDeltaAt.IsZero() {
				fmt.Printf("  Дельта: %s\n", bcMeta.LastDeltaAt.Format("2006-01-02 15:04"))
			}
		}

		return nil
	},
}
