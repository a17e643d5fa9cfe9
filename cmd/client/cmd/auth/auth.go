package auth

import (
	"github.com/spf13/cobra"
)

// AuthCmd - родительская команда для всех операций с авторизацией аудитора
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Управление аудитором",
	Long:  `Вход на сервер склада, выход и просмотр текущей сессии.`,
}
