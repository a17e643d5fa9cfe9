package volume

import (
	"fmt"

	domain "stockaudit/internal/domain/volume"

	"github.com/spf13/cobra"
)

// VolumeCmd - родительская команда для всех операций с конференцией объёмов
var VolumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Конференция объёмов",
	Long: `Открытие объёма, сканирование позиций, финализация и отмена.
Одновременно на устройстве активен только один объём.`,
}

func printVolume(v *domain.LocalVolume) {
	fmt.Printf("Объём %d (ЦД %d, %s)\n", v.VolumeNo, v.Location, v.ConfDate)
	fmt.Printf("  Статус: %s", string(v.Status))
	if v.ReadOnly {
		fmt.Print(" [только чтение]")
	}
	fmt.Println()
	fmt.Printf("  Позиций: %d, суммарно: %d\n", len(v.Items), v.TotalQty())

	if v.Pending() {
		fmt.Print("  Ожидает отправки:")
		if v.PendingCancel {
			fmt.Print(" отмена")
		}
		if v.PendingSnapshot {
			fmt.Print(" снимок")
		}
		if v.PendingFinalize {
			fmt.Print(" финализация")
		}
		fmt.Println()
	}
	if v.SyncError != "" {
		fmt.Printf("  Ошибка синхронизации: %s\n", v.SyncError)
	}
}
