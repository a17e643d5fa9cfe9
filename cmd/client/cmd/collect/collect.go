package collect

import (
	"github.com/spf13/cobra"
)

// CollectCmd - родительская команда для всех операций со сбором
var CollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Управление записями сбора",
	Long:  `Добавление, правка, удаление и просмотр записей аудита остатков.`,
}
