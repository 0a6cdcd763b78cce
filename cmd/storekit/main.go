package main

import "github.com/storekit-community/appstore-server-go/internal/cli"

func main() {
	cli.Execute()
}
