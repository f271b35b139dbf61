package main

import (
	"github.com/corray333/backend-labs/registration/internal/app"
	"github.com/corray333/backend-labs/registration/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
