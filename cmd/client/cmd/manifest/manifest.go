package manifest

import (
	"github.com/spf13/cobra"
)

// ManifestCmd - родительская команда для справочных кэшей
var ManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Справочные кэши",
	Long: `Обновление и просмотр локальных справочников: манифеста адресов
и кэша штрихкодов активного ЦД.`,
}
