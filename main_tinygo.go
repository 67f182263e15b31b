//go:build tinygo

package main

import (
	"tock/app"
	"tock/hal"
)

func main() {
	app.Run(hal.New())
}
