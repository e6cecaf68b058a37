package main

import (
	"go.uber.org/fx"

	"evidence-stamp/internal/service"
)

func main() {
	fx.New(service.Modules).Run()
}
