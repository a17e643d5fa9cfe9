// cmd/client/cmd/volume/status.go
package volume

import (
	"fmt"

	"stockaudit/cmd/client/cmd/types"
	"stockaudit/internal/app/client"

	"github.com/spf13/cobra"
)

var (
	statusRestore bool
	statusAll     bool
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние активного объёма",
	Long: `Показывает активный объём и его позиции. Флаг --restore ищет
открытую сессию на сервере, если локальной нет, например после
переустановки приложения.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if statusAll {
			volumes, err := app.ListVolumes()
			if err != nil {
				return fmt.Errorf("ошибка получения списка объёмов: %w", err)
			}
			if len(volumes) == 0 {
				fmt.Println("Объёмов нет")
				return nil
			}
			for _, v := range volumes {
				printVolume(v)
				fmt.Println()
			}
			return nil
		}

		v, err := app.ActiveVolume()
		if err != nil {
			return fmt.Errorf("ошибка чтения активного объёма: %w", err)
		}

		if v == nil && statusRestore {
			v, err = app.RestoreActiveVolume(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка восстановления сессии: %w", err)
			}
			if v != nil {
				fmt.Println("✓ Сессия восстановлена с сервера")
			}
		}

		if v == nil {
			fmt.Println("Активного объёма нет")
			return nil
		}

		printVolume(v)
		if len(v.Items) > 0 {
			fmt.Println("  Позиции:")
			for _, item := range v.Items {
				fmt.Printf("    %s x%d", item.Barcode, item.Qty)
				if item.Description != "" {
					fmt.Printf("  %s", item.Description)
				}
				fmt.Println()
			}
		}

		return nil
	},
}

func init() {
	StatusCmd.Flags().BoolVar(&statusRestore, "restore", false, "восстановить открытую сессию с сервера")
	StatusCmd.Flags().BoolVar(&statusAll, "all", false, "показать все локальные объёмы")
}
