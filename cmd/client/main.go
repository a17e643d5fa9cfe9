// cmd/client/main.go
package main

import "stockaudit/cmd/client/cmd"

func main() {
	cmd.Execute()
}
