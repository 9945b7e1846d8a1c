package main

import "cataid-backend/cmd/report/internal/cli"

func main() {
	cli.Execute()
}
