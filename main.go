package main

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/postforge/api/app"
	"github.com/postforge/api/router"
)

func main() {
	// setup and run app
	err := app.SetupAndRunServer(router.SetupRoutes)
	if err != nil {
		log.Trace(err)
		panic(err)
	}
}
