package main

import "github.com/stoik/trustlayer/services/trust-service/internal/app"

func main() {
	app.Execute()
}
