package main

import (
	"log"

	_ "github.com/noah-isme/civic-complaints-api/api/swagger"
	"github.com/noah-isme/civic-complaints-api/cmd"
)

// @title Civic Complaints API
// @version 1.0.0
// @description Citizen complaint intake with photo and text classification, location enrichment and severity ranking
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
