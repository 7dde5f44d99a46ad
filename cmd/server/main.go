package main

import "visionboard-backend/internal/app"

func main() {
	app.Run()
}
