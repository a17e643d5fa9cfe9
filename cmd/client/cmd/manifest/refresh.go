// cmd/client/cmd/manifest/refresh.go
package manifest

import (
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/spf13/cobra"
)

var refreshFull bool

var RefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Обновить справочные кэши",
	Long: `Подтягивает с сервера манифест адресов и кэш штрихкодов
активного ЦД. Манифест с неизменившимся хэшем не перекачивается.
Свежий кэш штрихкодов обновляется дельтой, устаревший или
принудительный (--full) перезаливается целиком.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		fmt.Println("Обновление манифеста...")
		meta, changed, err := app.RefreshManifest(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка обновления манифеста: %w", err)
		}
		if changed {
			fmt.Printf("✓ Манифест обновлён: %d позиций (%s)\n", meta.ItemCount, meta.RefDate)
		} else {
			fmt.Println("✓ Манифест не изменился")
		}

		fmt.Println("Обновление кэша штрихкодов...")
		bcMeta, err := app.RefreshBarcodeCache(cmd.Context(), refreshFull)
		if err != nil {
			return fmt.Errorf("ошибка обновления кэша штрихкодов: %w", err)
		}
		fmt.Printf("✓ Кэш штрихкодов: %d строк\n", bcMeta.RowCount)

		return nil
	},
}

func init() {
	RefreshCmd.Flags().BoolVar(&refreshFull, "full", false, "полная перезаливка кэша штрихкодов")
}
