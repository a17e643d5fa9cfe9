// cmd/client/cmd/init.go
package cmd

import (
	"fmt"

	"stockaudit/cmd/client/cmd/auth"
	"stockaudit/cmd/client/cmd/collect"
	"stockaudit/cmd/client/cmd/manifest"
	"stockaudit/cmd/client/cmd/sync"
	"stockaudit/cmd/client/cmd/volume"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Общее состояние терминала",
	Long: `Показывает текущего аудитора, активный ЦД, размер очереди
и доступность сервера.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Println("=== StockAudit ===")
		fmt.Println()

		if app.IsAuthenticated() {
			fmt.Printf("Аудитор: %s\n", app.OwnerID())
			fmt.Printf("Активный ЦД: %d\n", app.ActiveLocation())
		} else {
			fmt.Println("Вход не выполнен. Выполните: stockaudit auth login")
		}

		summary, err := app.PendingSummary()
		if err != nil {
			return fmt.Errorf("ошибка чтения очереди: %w", err)
		}
		fmt.Printf("Очередь: %d записей, %d с ошибкой\n",
			summary.PendingCount, summary.ErrorCount)

		v, err := app.ActiveVolume()
		if err == nil && v != nil {
			fmt.Printf("Активный объём: %d (%d позиций)\n", v.VolumeNo, len(v.Items))
		}

		fmt.Print("Сервер: ")
		if err := app.CheckConnection(cmd.Context()); err != nil {
			fmt.Printf("недоступен (%v)\n", err)
			fmt.Println("Работа продолжается в офлайн-режиме.")
		} else {
			fmt.Println("доступен")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	// Команды аутентификации
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)

	// Команды сбора
	rootCmd.AddCommand(collect.CollectCmd)
	collect.CollectCmd.AddCommand(collect.AddCmd)
	collect.CollectCmd.AddCommand(collect.ListCmd)
	collect.CollectCmd.AddCommand(collect.EditCmd)
	collect.CollectCmd.AddCommand(collect.DeleteCmd)
	collect.CollectCmd.AddCommand(collect.ReportCmd)

	// Конференция объёмов
	rootCmd.AddCommand(volume.VolumeCmd)
	volume.VolumeCmd.AddCommand(volume.OpenCmd)
	volume.VolumeCmd.AddCommand(volume.ScanCmd)
	volume.VolumeCmd.AddCommand(volume.FinalizeCmd)
	volume.VolumeCmd.AddCommand(volume.CancelCmd)
	volume.VolumeCmd.AddCommand(volume.StatusCmd)

	// Справочные кэши
	rootCmd.AddCommand(manifest.ManifestCmd)
	manifest.ManifestCmd.AddCommand(manifest.RefreshCmd)
	manifest.ManifestCmd.AddCommand(manifest.StatusCmd)
	manifest.ManifestCmd.AddCommand(manifest.LookupCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(prefsCmd)
}
