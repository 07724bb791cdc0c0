package main

import (
	_ "github.com/joho/godotenv/autoload"
)

// @title axiscore API
// @version 1.0
// @description Telegram 3D model bot: webhook, model storage and retrieval.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	Execute()
}
